// prsresults joins the score files of every PRS algorithm onto the phenotypes
// of a PLINK .fam file and writes the prediction table.
package main

import (
	"context"
	"flag"
	"log"

	"cloud.google.com/go/storage"
	pgsbuilder "github.com/ailabstw/PGSbuilder"
	_ "github.com/ailabstw/PGSbuilder/compileinfoprint"
	"github.com/ailabstw/PGSbuilder/config"
	"github.com/ailabstw/PGSbuilder/prediction"
	"github.com/ailabstw/PGSbuilder/prsresults"
)

func main() {
	var (
		bfile            string
		predPrefix       string
		method           string
		out              string
		configPath       string
		missingThreshold float64
	)
	flag.StringVar(&bfile, "bfile", "", "PLINK prefix of the cohort; phenotypes are read from its .fam")
	flag.StringVar(&predPrefix, "pred", "", "Prefix shared by the per-algorithm score files")
	flag.StringVar(&method, "method", "", "clf (case/control) or reg (quantitative)")
	flag.StringVar(&out, "out", "", "Output CSV path")
	flag.StringVar(&configPath, "config", "", "Optional JSON or YAML configuration")
	flag.Float64Var(&missingThreshold, "missing-threshold", 0, "Optional: drop algorithms missing in more than this fraction of samples. Overrides the configuration")
	flag.Parse()

	if bfile == "" || predPrefix == "" || out == "" {
		flag.PrintDefaults()
		log.Fatalln("Please provide --bfile, --pred and --out")
	}

	m, err := prediction.ParseMethod(method)
	if err != nil {
		flag.PrintDefaults()
		log.Fatalln(err)
	}

	cfg := config.Default()
	if configPath != "" {
		if cfg, err = config.ParseConfigFromPath(configPath); err != nil {
			log.Fatalln(err)
		}
		log.Printf("Using configuration %s\n", cfg.ConfigPath)
	}
	if missingThreshold != 0 {
		cfg.MissingThreshold = missingThreshold
		if err := cfg.Validate(); err != nil {
			log.Fatalln(err)
		}
	}

	ctx := context.Background()

	var client *storage.Client
	if pgsbuilder.IsGoogleStoragePath(bfile) || pgsbuilder.IsGoogleStoragePath(predPrefix) {
		if client, err = storage.NewClient(ctx); err != nil {
			log.Fatalln(err)
		}
	}

	log.Println("###### Collecting PRS Results ######")

	agg := prsresults.Aggregator{Config: cfg, Method: m, Client: client}
	t, _, err := agg.Run(ctx, bfile+".fam", predPrefix)
	if err != nil {
		log.Fatalln(err)
	}

	if err := t.WriteFile(out); err != nil {
		log.Fatalln(err)
	}
	log.Printf("Wrote %d samples and %d algorithms to %s\n", t.Len(), len(t.Algorithms), out)
}

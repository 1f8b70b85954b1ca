// prsanalysis builds or applies the cohort percentile reference, adjusts the
// scores for covariates and measures predictive performance.
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
)

func main() {
	var (
		o          options
		method     string
		configPath string
	)
	flag.StringVar(&o.PredFile, "pred_file", "", "The prediction table (.csv)")
	flag.StringVar(&method, "method", "", "clf or reg")
	flag.StringVar(&o.Mode, "mode", "", "target (build the references) or test (apply them)")
	flag.StringVar(&o.OutDir, "out_dir", "", "The output directory")
	flag.StringVar(&o.RankRefFile, "rank_ref_file", "", "The rank reference (.csv) written by a target run. Required in test mode")
	flag.StringVar(&o.Cov, "cov", "", "Optional: the covariate file (tab- or comma-delimited, with FID and IID)")
	flag.StringVar(&o.CovRefDir, "cov_ref_dir", "", "The cov directory of a target run. Required in test mode with --cov")
	flag.BoolVar(&o.RunPerformance, "run_performance", false, "Whether to calculate the model performance")
	flag.IntVar(&o.PercentileNum, "percentile_num", 0, "The number of percentile groups. Overrides the configuration (default 10)")
	flag.StringVar(&configPath, "config", "", "Optional JSON or YAML configuration")
	flag.Parse()

	if o.PredFile == "" || o.OutDir == "" || o.Mode == "" {
		flag.PrintDefaults()
		log.Fatalln("Please provide --pred_file, --mode and --out_dir")
	}

	var err error
	if o.Method, err = prediction.ParseMethod(method); err != nil {
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
	if o.PercentileNum == 0 {
		o.PercentileNum = cfg.PercentileNum
	}
	o.NAValues = cfg.NAValues

	ctx := context.Background()

	var client *storage.Client
	for _, p := range []string{o.PredFile, o.RankRefFile, o.Cov, o.CovRefDir} {
		if pgsbuilder.IsGoogleStoragePath(p) {
			if client, err = storage.NewClient(ctx); err != nil {
				log.Fatalln(err)
			}
			break
		}
	}

	if err := run(ctx, client, o); err != nil {
		log.Fatalln(err)
	}

	log.Println("###### Complete ######")
}

// collectbeta merges the per-SNP effect sizes left by every PRS algorithm
// into one beta matrix and reports which algorithms failed.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"path"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
	pgsbuilder "github.com/ailabstw/PGSbuilder"
	_ "github.com/ailabstw/PGSbuilder/compileinfoprint"
	"github.com/ailabstw/PGSbuilder/config"
	"github.com/ailabstw/PGSbuilder/prsparser"
	"github.com/ailabstw/PGSbuilder/weights"
)

const (
	BetaFile = "beta.tsv"
	LogDir   = "LOG"
)

func main() {
	var (
		bfile      string
		sumStats   string
		prsDir     string
		outDir     string
		algoList   string
		configPath string
	)
	flag.StringVar(&bfile, "bfile", "", "PLINK prefix of the target cohort; its .bim defines the SNP universe")
	flag.StringVar(&sumStats, "sumstats", "", "Whitespace-delimited base summary statistics")
	flag.StringVar(&prsDir, "prsdir", "", "Directory holding one subdirectory of output per PRS algorithm")
	flag.StringVar(&outDir, "out", "", "Output directory. Defaults to --prsdir")
	flag.StringVar(&algoList, "algo", "", fmt.Sprint("Comma-separated algorithms to collect. Defaults to every known layout: ", prsparser.LayoutNames()))
	flag.StringVar(&configPath, "config", "", "Optional JSON or YAML configuration")
	flag.Parse()

	if bfile == "" {
		flag.PrintDefaults()
		log.Fatalln("Please provide --bfile")
	}
	if sumStats == "" {
		flag.PrintDefaults()
		log.Fatalln("Please provide --sumstats")
	}
	if prsDir == "" {
		flag.PrintDefaults()
		log.Fatalln("Please provide --prsdir")
	}
	if outDir == "" {
		outDir = prsDir
	}

	cfg := config.Default()
	if configPath != "" {
		var err error
		if cfg, err = config.ParseConfigFromPath(configPath); err != nil {
			log.Fatalln(err)
		}
		log.Printf("Using configuration %s\n", cfg.ConfigPath)
	}

	algos := cfg.Algorithms
	if algoList != "" {
		algos = nil
		for _, a := range strings.Split(algoList, ",") {
			if a = strings.TrimSpace(a); a != "" {
				algos = append(algos, a)
			}
		}
	}
	if len(algos) == 0 {
		log.Fatalln("No algorithm to collect")
	}

	ctx := context.Background()

	var client *storage.Client
	for _, p := range []string{bfile, sumStats, prsDir} {
		if pgsbuilder.IsGoogleStoragePath(p) {
			var err error
			if client, err = storage.NewClient(ctx); err != nil {
				log.Fatalln(err)
			}
			break
		}
	}

	if err := run(ctx, client, cfg, bfile, sumStats, prsDir, outDir, algos); err != nil {
		log.Fatalln(err)
	}
}

func run(ctx context.Context, client *storage.Client, cfg config.Config, bfile, sumStats, prsDir, outDir string, algos []string) error {
	log.Println("###### Building Beta (Weight) Table ######")

	bim, err := pgsbuilder.ReadBIM(ctx, bfile+".bim", client)
	if err != nil {
		return err
	}
	log.Printf("%d variants in %s.bim\n", len(bim), bfile)

	stats, err := weights.ReadSumStats(ctx, sumStats, client, cfg.SumStatColumns, cfg.NAValues)
	if err != nil {
		return err
	}
	snps := weights.Universe(bim, stats)

	loader := prsparser.Loader{Dir: prsDir, Basename: path.Base(bfile), Client: client}
	results := weights.NewBuilder(snps, loader, cfg.WeightLayouts).BuildAll(ctx, algos)
	for _, r := range results {
		if r.Skipped() {
			log.Printf("%s: no output under %s, skipping\n", r.Algorithm, prsDir)
		}
	}

	m := weights.Collect(snps, results)
	if err := m.WriteFile(filepath.Join(outDir, BetaFile)); err != nil {
		return err
	}
	log.Printf("Wrote %d algorithms to %s\n", len(m.Algorithms), filepath.Join(outDir, BetaFile))

	status := weights.NewStatus(algos, m, results)
	logDir := filepath.Join(outDir, LogDir)
	if err := status.AttachLogs(logDir); err != nil {
		return err
	}
	if len(status.Fail) > 0 {
		log.Println("Failed algorithms:", strings.Join(status.Fail, ", "))
	}

	return status.WriteFiles(logDir)
}

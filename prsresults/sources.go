package prsresults

import (
	"context"
	"fmt"
	"log"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"cloud.google.com/go/storage"
	pgsbuilder "github.com/ailabstw/PGSbuilder"
	"github.com/ailabstw/PGSbuilder/prsparser"
	"github.com/carbocation/pfx"
	"google.golang.org/api/iterator"
)

// Source is one discovered per-sample score file.
type Source struct {
	Algorithm string
	Path      string
	Layout    prsparser.ScoreLayout
}

// Discover expands every score layout against prefix. Layouts whose pattern
// captures the algorithm name with * come first, each in lexical order of
// the matched files. When two files claim the same algorithm, the first is
// kept.
func Discover(ctx context.Context, prefix string, layouts map[string]prsparser.ScoreLayout, client *storage.Client) ([]Source, error) {
	out := make([]Source, 0)
	seen := make(map[string]string)
	for _, name := range prsparser.ScoreLayoutNames(layouts) {
		layout := layouts[name]
		pattern := strings.ReplaceAll(layout.Pattern, "{prefix}", prefix)
		if !pgsbuilder.IsGoogleStoragePath(pattern) {
			pattern = filepath.Clean(pattern)
		}

		var matches []string
		if !strings.Contains(pattern, "*") {
			if pgsbuilder.Exists(ctx, pattern, client) {
				matches = []string{pattern}
			}
		} else {
			var err error
			if matches, err = glob(ctx, pattern, client); err != nil {
				return nil, pfx.Err(fmt.Errorf("score layout %s: %w", name, err))
			}
		}

		for _, match := range matches {
			algo := layout.Algorithm
			if algo == "" {
				algo = captured(pattern, match)
			}
			if algo == "" {
				continue
			}
			if prev, exists := seen[algo]; exists {
				log.Printf("%s: keeping %s, ignoring %s\n", algo, prev, match)
				continue
			}
			seen[algo] = match
			out = append(out, Source{Algorithm: algo, Path: match, Layout: layout})
		}
	}

	return out, nil
}

// captured returns the text matched by the single * of pattern.
func captured(pattern, match string) string {
	star := strings.Index(pattern, "*")
	if star < 0 {
		return ""
	}
	before, after := pattern[:star], pattern[star+1:]
	if !strings.HasPrefix(match, before) || !strings.HasSuffix(match, after) || len(match) < len(before)+len(after) {
		return ""
	}

	return match[len(before) : len(match)-len(after)]
}

func glob(ctx context.Context, pattern string, client *storage.Client) ([]string, error) {
	if client == nil || !pgsbuilder.IsGoogleStoragePath(pattern) {
		matches, err := filepath.Glob(pattern)
		sort.Strings(matches)
		return matches, err
	}

	bucketName, objectPattern, err := pgsbuilder.SplitGoogleStoragePath(pattern)
	if err != nil {
		return nil, err
	}

	query := &storage.Query{Prefix: objectPattern[:strings.Index(objectPattern, "*")]}
	it := client.Bucket(bucketName).Objects(ctx, query)

	out := make([]string, 0)
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		} else if err != nil {
			return nil, err
		}

		if ok, _ := path.Match(objectPattern, attrs.Name); ok {
			out = append(out, "gs://"+bucketName+"/"+attrs.Name)
		}
	}
	sort.Strings(out)

	return out, nil
}

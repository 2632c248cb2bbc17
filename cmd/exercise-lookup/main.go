// exercise-lookup resolves free-form exercise names from the command
// line against the upstream database, caching results in a local bbolt
// file so repeated lookups stay off the network.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	shared "github.com/jaronwright/workouts-sub003/pkg"
	"github.com/jaronwright/workouts-sub003/pkg/bootstrap"
	"github.com/jaronwright/workouts-sub003/pkg/cache"
	"github.com/jaronwright/workouts-sub003/pkg/exercisedb"
	"github.com/jaronwright/workouts-sub003/pkg/infrastructure/database"
	"github.com/jaronwright/workouts-sub003/pkg/normalizer"
	"github.com/jaronwright/workouts-sub003/pkg/quota"
	"github.com/jaronwright/workouts-sub003/pkg/resolver"
	"github.com/jaronwright/workouts-sub003/pkg/types"
)

func main() {
	dbPath := flag.String("db", "exercise-cache.db", "Path to local cache database")
	baseURL := flag.String("base-url", shared.DefaultExerciseDBBaseURL, "Upstream exercise database base URL")
	apiKey := flag.String("api-key", os.Getenv(shared.SecretExerciseDBKey), "Upstream API key (defaults to EXERCISEDB_API_KEY)")
	asJSON := flag.Bool("json", false, "Print the full resolution as JSON")
	flag.Parse()

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Usage: exercise-lookup [flags] <exercise name>...")
		flag.PrintDefaults()
		os.Exit(2)
	}
	if *apiKey == "" {
		fmt.Fprintln(os.Stderr, "Error: no API key. Set EXERCISEDB_API_KEY or pass -api-key.")
		os.Exit(2)
	}

	bootstrap.InitLogger()

	db, err := database.NewBoltAdapter(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening cache db: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	client := exercisedb.NewClient(exercisedb.Config{BaseURL: *baseURL, APIKey: *apiKey})
	r := resolver.New(cache.New(db), quota.NewLedger(db), normalizer.New(nil), client)

	ctx := context.Background()
	exitCode := 0
	for _, name := range flag.Args() {
		res, err := r.Resolve(ctx, name)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error resolving %q: %v\n", name, err)
			exitCode = 1
			continue
		}
		if *asJSON {
			out, _ := json.MarshalIndent(res, "", "  ")
			fmt.Println(string(out))
			continue
		}
		printResolution(name, res)
		if res.Status != types.StatusResolved {
			exitCode = 1
		}
	}
	os.Exit(exitCode)
}

func printResolution(name string, res *types.Resolution) {
	switch res.Status {
	case types.StatusResolved:
		source := "remote"
		if res.FromCache {
			source = "cache"
		}
		fmt.Printf("%s => %s (%s, via %s)\n", name, res.Record.Name, res.Record.ExerciseID, source)
		if len(res.Record.TargetMuscles) > 0 {
			fmt.Printf("   targets: %v\n", res.Record.TargetMuscles)
		}
	case types.StatusNotFound:
		fmt.Printf("%s => not found\n", name)
	case types.StatusQuotaExhausted:
		fmt.Printf("%s => quota exhausted, retry after %s\n", name, res.RetryAfter.UTC().Format("2006-01-02 15:04 MST"))
	default:
		fmt.Printf("%s => transport error, try again later\n", name)
	}
}

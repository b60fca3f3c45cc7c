package db

import (
	"fmt"

	"github.com/dtnitsch/wiki-harvester/internal/common"
	dbpkg "github.com/dtnitsch/wiki-harvester/pkg/db"
	"github.com/urfave/cli/v2"
)

func openLedger(c *cli.Context) (*dbpkg.DB, error) {
	path, err := common.LedgerPath(c)
	if err != nil {
		return nil, err
	}
	database, err := dbpkg.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}
	return database, nil
}

// GetRunIDOrLatest returns the run ID from args, or the latest run if not provided
func GetRunIDOrLatest(c *cli.Context, database *dbpkg.DB) (int64, error) {
	if c.NArg() == 0 {
		runs, err := database.ListRuns(1)
		if err != nil {
			return 0, fmt.Errorf("failed to get latest run: %w", err)
		}
		if len(runs) == 0 {
			return 0, fmt.Errorf("no runs found. Run 'wikiharvest crawl' first")
		}
		return runs[0].RunID, nil
	}
	return common.ParseRunID(c.Args().First())
}

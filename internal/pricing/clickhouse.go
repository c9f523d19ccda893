package pricing

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

// ClickHouseSource reads match statistics from the team_match_results table
type ClickHouseSource struct {
	conn driver.Conn
}

// NewClickHouseSource connects to ClickHouse and verifies the connection
func NewClickHouseSource(addr, database, username, password string) (*ClickHouseSource, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: database,
			Username: username,
			Password: password,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	if err := conn.Ping(context.Background()); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	return &ClickHouseSource{conn: conn}, nil
}

const teamStatsQuery = `
	SELECT
		team_id,
		toInt64(countIf(status != 'missed'))                AS matches,
		toInt64(countIf(status = 'completed' AND won = 1)) AS wins,
		toInt64(countIf(status = 'abandoned'))             AS abandoned,
		toInt64(countIf(status = 'missed'))                AS missed
	FROM team_match_results
	WHERE played_at >= ? AND played_at < ?
	GROUP BY team_id
`

// TeamStats aggregates results per team for the window. Teams without
// results in the window are absent from the map.
func (c *ClickHouseSource) TeamStats(ctx context.Context, window Window, teamIDs []string) (map[string]TeamStats, error) {
	wanted := make(map[string]bool, len(teamIDs))
	for _, id := range teamIDs {
		wanted[id] = true
	}

	rows, err := c.conn.Query(ctx, teamStatsQuery, window.From, window.To)
	if err != nil {
		return nil, fmt.Errorf("failed to query team stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[string]TeamStats)
	for rows.Next() {
		var (
			id                               string
			matches, wins, abandoned, missed int64
		)
		if err := rows.Scan(&id, &matches, &wins, &abandoned, &missed); err != nil {
			return nil, err
		}
		if len(wanted) > 0 && !wanted[id] {
			continue
		}
		stats[id] = TeamStats{
			TeamID:    id,
			Matches:   int(matches),
			Wins:      int(wins),
			Abandoned: int(abandoned),
			Missed:    int(missed),
		}
	}
	return stats, rows.Err()
}

// Close closes the ClickHouse connection
func (c *ClickHouseSource) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

package main

import (
	"hash/fnv"
	"os"

	"github.com/bwmarrin/snowflake"
	"github.com/trackmint/trackmint/internal/affiliate"
	"github.com/trackmint/trackmint/internal/audit"
	"github.com/trackmint/trackmint/internal/clock"
	"github.com/trackmint/trackmint/internal/commission"
	"github.com/trackmint/trackmint/internal/config"
	"github.com/trackmint/trackmint/internal/conversion"
	"github.com/trackmint/trackmint/internal/events"
	"github.com/trackmint/trackmint/internal/migration"
	"github.com/trackmint/trackmint/internal/observability"
	"github.com/trackmint/trackmint/internal/payout"
	"github.com/trackmint/trackmint/internal/program"
	"github.com/trackmint/trackmint/internal/ratelimit"
	"github.com/trackmint/trackmint/internal/referral"
	"github.com/trackmint/trackmint/internal/seed"
	"github.com/trackmint/trackmint/internal/server"
	"github.com/trackmint/trackmint/internal/tier"
	"github.com/trackmint/trackmint/pkg/db"
	"go.uber.org/fx"
)

// newSnowflakeNode derives the node id from the hostname so replicas mint
// disjoint id ranges.
func newSnowflakeNode() (*snowflake.Node, error) {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "trackmint"
	}
	h := fnv.New32a()
	h.Write([]byte(hostname))
	return snowflake.NewNode(int64(h.Sum32() % 1024))
}

func main() {
	fx.New(
		config.Module,
		observability.Module,
		fx.Provide(newSnowflakeNode),
		clock.Module,
		db.Module,
		migration.Module,
		events.Module,
		audit.Module,
		ratelimit.Module,
		tier.Module,
		seed.Module,
		program.Module,
		affiliate.Module,
		referral.Module,
		conversion.Module,
		commission.Module,
		payout.Module,
		server.Module,
	).Run()
}

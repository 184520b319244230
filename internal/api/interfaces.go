package api

import (
	"context"

	"github.com/neexbeast/tripsim/internal/simulation"
	"github.com/neexbeast/tripsim/internal/storage"
)

// SimulationRepo defines the storage operations needed by handlers.
type SimulationRepo interface {
	SaveSimulation(ctx context.Context, rec *simulation.Record) error
	GetSimulation(ctx context.Context, id string) (*simulation.Record, error)
	ListSimulations(ctx context.Context, f storage.ListFilter) ([]*simulation.Record, error)
}

// SimulationCache defines the cache operations needed by handlers.
type SimulationCache interface {
	Get(ctx context.Context, id string) (*simulation.Record, error)
	Set(ctx context.Context, rec *simulation.Record) error
	Delete(ctx context.Context, id string) error
}

// Simulator runs one trip simulation.
type Simulator interface {
	Simulate(ctx context.Context, req simulation.Request) (*simulation.Result, error)
}

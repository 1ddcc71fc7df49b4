//go:build wireinject
// +build wireinject

package di

import (
	wire "github.com/google/wire"

	"geoalert/internal"
	"geoalert/internal/controllers"
	"geoalert/internal/providers"
	"geoalert/internal/scheduler"
	"geoalert/internal/services"
	"geoalert/internal/simulation"
	"geoalert/internal/sink"
	"geoalert/internal/storage"
	"geoalert/internal/structures"
)

func InitApp(cfg *structures.CliFlags) (*internal.App, func(), error) {

	wire.Build(
		providers.NewConfigProvider,
		providers.NewLogProvider,
		providers.NewMetricsProvider,
		providers.NewInstrumentedCacheProvider,

		storage.NewStore,
		storage.NewPersister,
		sink.NewAlertSink,
		services.NewAlertService,
		simulation.NewManager,
		wire.Bind(new(simulation.ManagerInterface), new(*simulation.Manager)),
		scheduler.NewScheduler,
		controllers.NewApiController,
		controllers.NewSimulationController,
		controllers.NewHealthController,
		internal.InitRoutes,
		internal.NewApp,
	)

	return nil, nil, nil
}

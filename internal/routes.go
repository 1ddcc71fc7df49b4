package internal

import (
	"net/http"

	"geoalert/internal/controllers"
	"geoalert/internal/providers"
)

func InitRoutes(apiController *controllers.ApiController, simController *controllers.SimulationController) providers.RouterProviderInterface {
	routers := providers.NewRouterProvider()

	routers.Post("/locations", http.HandlerFunc(apiController.ReceiveLocation))
	routers.Get("/alerts", http.HandlerFunc(apiController.GetAlerts))
	routers.Post("/trackers", http.HandlerFunc(apiController.PutTracker))
	routers.Get("/trackers", http.HandlerFunc(apiController.GetTrackers))
	routers.Post("/geofences", http.HandlerFunc(apiController.PutGeofence))
	routers.Get("/geofences", http.HandlerFunc(apiController.GetGeofences))
	routers.Post("/links", http.HandlerFunc(apiController.PutLink))
	routers.Post("/links/delete", http.HandlerFunc(apiController.DeleteLink))
	routers.Post("/rules", http.HandlerFunc(apiController.PutRule))
	routers.Get("/rules", http.HandlerFunc(apiController.GetRules))
	routers.Post("/schedules/poll", http.HandlerFunc(apiController.PollSchedules))
	routers.Post("/owner-locations", http.HandlerFunc(apiController.ReceiveOwnerLocation))
	routers.Post("/left-behind/watch", http.HandlerFunc(apiController.ArmLeftBehind))
	routers.Post("/left-behind/watch/delete", http.HandlerFunc(apiController.DisarmLeftBehind))
	routers.Get("/left-behind/watches", http.HandlerFunc(apiController.GetWatches))

	routers.Post("/simulations/start", http.HandlerFunc(simController.Start))
	routers.Post("/simulations/stop", http.HandlerFunc(simController.Stop))
	routers.Post("/simulations/pattern", http.HandlerFunc(simController.ChangePattern))
	routers.Get("/simulations", http.HandlerFunc(simController.List))
	return routers
}

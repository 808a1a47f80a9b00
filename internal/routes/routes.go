package routes

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fixpoint-io/fixpoint-api/internal/authz"
	"github.com/fixpoint-io/fixpoint-api/internal/handlers"
	"github.com/fixpoint-io/fixpoint-api/internal/models"
	"github.com/fixpoint-io/fixpoint-api/internal/statusfeed"
)

// Handlers bundles everything the router mounts.
type Handlers struct {
	Auth          *handlers.AuthHandler
	User          *handlers.UserHandler
	Location      *handlers.LocationHandler
	Customer      *handlers.CustomerHandler
	Device        *handlers.DeviceHandler
	Sale          *handlers.SaleHandler
	Inventory     *handlers.InventoryHandler
	PurchaseOrder *handlers.PurchaseOrderHandler
	Expense       *handlers.ExpenseHandler
	Feedback      *handlers.FeedbackHandler
	Notification  *handlers.NotificationHandler
	Preference    *handlers.PreferenceHandler
	Landing       *handlers.LandingHandler
	Health        http.HandlerFunc
	Feed          *statusfeed.Handler
}

// NewRouter sets up the API routes. Public endpoints carry no middleware;
// the /api subtree is JWT-authenticated with per-route gates on top.
func NewRouter(h Handlers) *mux.Router {
	router := mux.NewRouter()

	// Operational endpoints
	router.HandleFunc("/health", h.Health).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	// Public endpoints: landing page, feedback form, auth.
	router.HandleFunc("/api/public/landing", h.Landing.Landing).Methods(http.MethodGet)
	router.HandleFunc("/api/public/feedback", h.Feedback.SubmitFeedback).Methods(http.MethodPost)
	router.HandleFunc("/api/signup", h.Auth.SignUp).Methods(http.MethodPost)
	router.HandleFunc("/api/login", h.Auth.Login).Methods(http.MethodPost)

	// Everything below requires a valid bearer token.
	api := router.PathPrefix("/api").Subrouter()
	api.Use(h.Auth.JWTMiddleware)

	adminOnly := authz.RequireRoles(models.RoleAdmin)
	managers := authz.RequireRoles(models.RoleManager)
	frontOffice := authz.RequireRoles(models.RoleManager, models.RoleFrontDesk, models.RoleSales)
	workshop := authz.RequireRoles(models.RoleManager, models.RoleTechnician, models.RoleFrontDesk)

	// Users: admin manages accounts; listing is open to managers.
	api.Handle("/users", managers(http.HandlerFunc(h.User.ListUsers))).Methods(http.MethodGet)
	api.Handle("/users/{userID}", managers(http.HandlerFunc(h.User.GetUser))).Methods(http.MethodGet)
	api.Handle("/users/{userID}/access", adminOnly(http.HandlerFunc(h.User.UpdateAccess))).Methods(http.MethodPut)
	api.Handle("/users/{userID}", adminOnly(http.HandlerFunc(h.User.Deactivate))).Methods(http.MethodDelete)

	// Locations
	api.Handle("/locations", authz.RequireRoles(models.RoleManager, models.RoleFrontDesk, models.RoleSales, models.RoleTechnician)(http.HandlerFunc(h.Location.ListLocations))).Methods(http.MethodGet)
	api.Handle("/locations", adminOnly(http.HandlerFunc(h.Location.CreateLocation))).Methods(http.MethodPost)
	api.Handle("/locations/{locationID}", managers(http.HandlerFunc(h.Location.GetLocation))).Methods(http.MethodGet)
	api.Handle("/locations/{locationID}", adminOnly(http.HandlerFunc(h.Location.UpdateLocation))).Methods(http.MethodPut)

	// Customers
	api.Handle("/customers", frontOffice(http.HandlerFunc(h.Customer.ListCustomers))).Methods(http.MethodGet)
	api.Handle("/customers", frontOffice(http.HandlerFunc(h.Customer.CreateCustomer))).Methods(http.MethodPost)
	api.Handle("/customers/{customerID}", frontOffice(http.HandlerFunc(h.Customer.GetCustomer))).Methods(http.MethodGet)
	api.Handle("/customers/{customerID}", frontOffice(http.HandlerFunc(h.Customer.UpdateCustomer))).Methods(http.MethodPut)
	api.Handle("/customers/{customerID}", managers(http.HandlerFunc(h.Customer.DeleteCustomer))).Methods(http.MethodDelete)

	// Devices (repair tickets)
	api.Handle("/devices", workshop(http.HandlerFunc(h.Device.ListDevices))).Methods(http.MethodGet)
	api.Handle("/devices", workshop(http.HandlerFunc(h.Device.RegisterDevice))).Methods(http.MethodPost)
	api.Handle("/devices/{deviceID}", workshop(http.HandlerFunc(h.Device.GetDevice))).Methods(http.MethodGet)
	api.Handle("/devices/{deviceID}/status", workshop(http.HandlerFunc(h.Device.UpdateStatus))).Methods(http.MethodPut)
	api.Handle("/devices/{deviceID}/technician", managers(http.HandlerFunc(h.Device.AssignTechnician))).Methods(http.MethodPut)

	// Point of sale
	api.Handle("/sales", authz.RequireRoles(models.RoleManager, models.RoleSales, models.RoleFrontDesk)(http.HandlerFunc(h.Sale.ListSales))).Methods(http.MethodGet)
	api.Handle("/sales", authz.RequireRoles(models.RoleManager, models.RoleSales, models.RoleFrontDesk)(http.HandlerFunc(h.Sale.CreateSale))).Methods(http.MethodPost)
	api.Handle("/sales/{saleID}", authz.RequireRoles(models.RoleManager, models.RoleSales, models.RoleFrontDesk)(http.HandlerFunc(h.Sale.GetSale))).Methods(http.MethodGet)

	// Inventory
	api.Handle("/inventory", workshop(http.HandlerFunc(h.Inventory.ListItems))).Methods(http.MethodGet)
	api.Handle("/inventory", managers(http.HandlerFunc(h.Inventory.CreateItem))).Methods(http.MethodPost)
	api.Handle("/inventory/{itemID}", workshop(http.HandlerFunc(h.Inventory.GetItem))).Methods(http.MethodGet)
	api.Handle("/inventory/{itemID}", managers(http.HandlerFunc(h.Inventory.UpdateItem))).Methods(http.MethodPut)
	api.Handle("/inventory/{itemID}/adjust", authz.RequirePermissions("inventory.adjust")(http.HandlerFunc(h.Inventory.AdjustQuantity))).Methods(http.MethodPost)

	// Purchase orders
	api.Handle("/purchase-orders", managers(http.HandlerFunc(h.PurchaseOrder.ListOrders))).Methods(http.MethodGet)
	api.Handle("/purchase-orders", managers(http.HandlerFunc(h.PurchaseOrder.CreateOrder))).Methods(http.MethodPost)
	api.Handle("/purchase-orders/{orderID}", managers(http.HandlerFunc(h.PurchaseOrder.GetOrder))).Methods(http.MethodGet)
	api.Handle("/purchase-orders/{orderID}/order", managers(http.HandlerFunc(h.PurchaseOrder.MarkOrdered))).Methods(http.MethodPost)
	api.Handle("/purchase-orders/{orderID}/cancel", managers(http.HandlerFunc(h.PurchaseOrder.CancelOrder))).Methods(http.MethodPost)
	api.Handle("/purchase-orders/{orderID}/receive", managers(http.HandlerFunc(h.PurchaseOrder.ReceiveOrder))).Methods(http.MethodPost)

	// Expenses
	api.Handle("/expenses", managers(http.HandlerFunc(h.Expense.ListExpenses))).Methods(http.MethodGet)
	api.Handle("/expenses", managers(http.HandlerFunc(h.Expense.CreateExpense))).Methods(http.MethodPost)
	api.Handle("/expenses/{expenseID}", adminOnly(http.HandlerFunc(h.Expense.DeleteExpense))).Methods(http.MethodDelete)

	// Feedback review (submission is public)
	api.Handle("/feedback", managers(http.HandlerFunc(h.Feedback.ListFeedback))).Methods(http.MethodGet)

	// Notifications: always scoped to the requester, no extra gate.
	api.HandleFunc("/notifications", h.Notification.ListNotifications).Methods(http.MethodGet)
	api.HandleFunc("/notifications/unread-count", h.Notification.UnreadCount).Methods(http.MethodGet)
	api.HandleFunc("/notifications/{notificationID}/read", h.Notification.MarkRead).Methods(http.MethodPost)
	api.HandleFunc("/notifications/read-all", h.Notification.MarkAllRead).Methods(http.MethodPost)
	api.HandleFunc("/notification-types", h.Notification.ListTypes).Methods(http.MethodGet)
	api.HandleFunc("/notification-preferences", h.Preference.ListPreferences).Methods(http.MethodGet)
	api.HandleFunc("/notification-preferences/{typeID}", h.Preference.GetPreference).Methods(http.MethodGet)
	api.HandleFunc("/notification-preferences/{typeID}", h.Preference.UpdatePreference).Methods(http.MethodPut)

	// Live status feed
	api.Handle("/ws", h.Feed).Methods(http.MethodGet)

	return router
}

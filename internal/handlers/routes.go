package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/yukikurage/project-management-api/internal/constants"
	"github.com/yukikurage/project-management-api/internal/middleware"
	"github.com/yukikurage/project-management-api/internal/repository"
	"github.com/yukikurage/project-management-api/internal/services"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RouterDeps holds everything the HTTP surface needs
type RouterDeps struct {
	DB     *gorm.DB
	Logger *zap.Logger

	Projects repository.ProjectRepository
	Tasks    repository.TaskRepository

	AuthService       *services.AuthService
	UserService       *services.UserService
	RoleService       *services.RoleService
	ProjectService    *services.ProjectService
	TaskService       *services.TaskService
	StatisticsService *services.StatisticsService

	LoginLimiter *middleware.IPRateLimiter
}

// NewRouter builds the gin engine with every API route registered
func NewRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.GinZapMiddleware(deps.Logger))
	r.Use(middleware.PrometheusMiddleware())

	authHandler := NewAuthHandler(deps.AuthService, deps.Logger)
	userHandler := NewUserHandler(deps.UserService, deps.Logger)
	roleHandler := NewRoleHandler(deps.RoleService, deps.Logger)
	projectHandler := NewProjectHandler(deps.ProjectService, deps.TaskService, deps.Logger)
	taskHandler := NewTaskHandler(deps.TaskService, deps.Logger)
	statisticsHandler := NewStatisticsHandler(deps.StatisticsService, deps.Logger)
	healthHandler := NewHealthHandler(deps.DB, deps.Logger)

	requireAuth := middleware.RequireAuth(deps.AuthService, deps.Logger)
	can := middleware.RequirePermission

	r.GET("/health", healthHandler.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		// Auth routes
		auth := api.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			if deps.LoginLimiter != nil {
				auth.POST("/login", middleware.RateLimitByIP(deps.LoginLimiter), authHandler.Login)
			} else {
				auth.POST("/login", authHandler.Login)
			}
			auth.GET("/me", requireAuth, authHandler.GetCurrentUser)
			auth.POST("/refresh", requireAuth, authHandler.Refresh)
			auth.POST("/logout", requireAuth, authHandler.Logout)
		}

		// Project routes
		projects := api.Group("/projects")
		projects.Use(requireAuth)
		{
			projectAccess := middleware.RequireProjectAccess(deps.Projects)

			projects.GET("", can(constants.PermProjectsView), projectHandler.ListProjects)
			projects.POST("", can(constants.PermProjectsCreate), projectHandler.CreateProject)
			projects.GET("/:id", can(constants.PermProjectsView), projectAccess, projectHandler.GetProject)
			projects.PUT("/:id", can(constants.PermProjectsUpdate), projectAccess, projectHandler.UpdateProject)
			projects.PATCH("/:id/status", can(constants.PermProjectsUpdate), projectAccess, projectHandler.UpdateProjectStatus)
			projects.DELETE("/:id", can(constants.PermProjectsDelete), projectAccess, projectHandler.DeleteProject)
			projects.GET("/:id/tasks", can(constants.PermTasksView), projectAccess, projectHandler.ListProjectTasks)
			projects.POST("/:id/tasks/suggest", can(constants.PermTasksCreate), projectAccess, projectHandler.SuggestTasks)
		}

		// Task routes
		tasks := api.Group("/tasks")
		tasks.Use(requireAuth)
		{
			taskAccess := middleware.RequireTaskAccess(deps.Tasks)

			tasks.GET("", can(constants.PermTasksView), taskHandler.ListTasks)
			tasks.POST("", can(constants.PermTasksCreate), taskHandler.CreateTask)
			tasks.GET("/:id", can(constants.PermTasksView), taskAccess, taskHandler.GetTask)
			tasks.PUT("/:id", can(constants.PermTasksUpdate), taskAccess, taskHandler.UpdateTask)
			tasks.PATCH("/:id/status", taskAccess, middleware.RequireTaskStatusPermission(), taskHandler.UpdateTaskStatus)
			tasks.POST("/:id/assign", can(constants.PermTasksAssign), taskAccess, taskHandler.AssignTask)
			tasks.POST("/:id/unassign", can(constants.PermTasksAssign), taskAccess, taskHandler.UnassignTask)
			tasks.DELETE("/:id", can(constants.PermTasksDelete), taskAccess, taskHandler.DeleteTask)
		}

		// User administration
		users := api.Group("/users")
		users.Use(requireAuth)
		{
			users.GET("", can(constants.PermUsersView), userHandler.ListUsers)
			users.POST("", can(constants.PermUsersCreate), userHandler.CreateUser)
			users.GET("/:id", can(constants.PermUsersView), userHandler.GetUser)
			users.PUT("/:id", can(constants.PermUsersUpdate), userHandler.UpdateUser)
			users.DELETE("/:id", can(constants.PermUsersDelete), userHandler.DeleteUser)
		}

		// Roles
		roles := api.Group("/roles")
		roles.Use(requireAuth)
		{
			roles.GET("", can(constants.PermRolesView), roleHandler.ListRoles)
			roles.GET("/permissions", can(constants.PermRolesView), roleHandler.ListPermissions)
			roles.POST("", can(constants.PermRolesManage), roleHandler.CreateRole)
			roles.GET("/:id", can(constants.PermRolesView), roleHandler.GetRole)
			roles.PUT("/:id", can(constants.PermRolesManage), roleHandler.UpdateRole)
			roles.DELETE("/:id", can(constants.PermRolesManage), roleHandler.DeleteRole)
		}

		api.GET("/statistics", requireAuth, can(constants.PermStatisticsView), statisticsHandler.Dashboard)
	}

	return r
}

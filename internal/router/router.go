// internal/router/router.go
package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"nimbo/internal/handler"
	"nimbo/internal/middleware"
)

type Handlers struct {
	Health     *handler.HealthHandler
	User       *handler.UserHandler
	Workspace  *handler.WorkspaceHandler
	Invitation *handler.InvitationHandler
	Room       *handler.RoomHandler
	Message    *handler.MessageHandler
	Presence   *handler.PresenceHandler
	WS         *handler.WSHandler
}

// Setup wires all routes. Everything under /api and /ws requires a valid
// bearer token except invitation verification, which only needs the token
// from the invite link.
func Setup(
	logger *zap.Logger,
	validator middleware.TokenValidator,
	allowedOrigins string,
	h Handlers,
) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS(allowedOrigins))
	r.Use(middleware.MetricsMiddleware())

	r.GET("/health", h.Health.Health)
	r.GET("/ready", h.Health.Ready)
	r.GET("/metrics", middleware.MetricsHandler())

	r.GET("/api/invitations/verify", h.Invitation.VerifyInvitation)

	api := r.Group("/api")
	api.Use(middleware.AuthMiddleware(validator))
	{
		users := api.Group("/users")
		{
			users.GET("", h.User.ListUsers)
			users.GET("/me", h.User.GetMe)
			users.PUT("/me", h.User.UpdateProfile)
			users.PUT("/me/status", h.User.UpdateStatus)
			users.GET("/:id", h.User.GetUser)
		}

		workspaces := api.Group("/workspaces")
		{
			workspaces.POST("", h.Workspace.CreateWorkspace)
			workspaces.GET("", h.Workspace.ListWorkspaces)
			workspaces.GET("/:id", h.Workspace.GetWorkspace)
			workspaces.PUT("/:id", h.Workspace.UpdateWorkspace)
			workspaces.DELETE("/:id", h.Workspace.DeleteWorkspace)

			workspaces.GET("/:id/members", h.Workspace.ListMembers)
			workspaces.PUT("/:id/members/:userId", h.Workspace.UpdateMemberRole)
			workspaces.DELETE("/:id/members/:userId", h.Workspace.RemoveMember)

			workspaces.POST("/:id/invitations", h.Invitation.CreateInvitation)
			workspaces.GET("/:id/invitations", h.Invitation.ListPending)

			workspaces.POST("/:id/rooms", h.Room.CreateRoom)
			workspaces.GET("/:id/rooms", h.Room.ListRooms)
		}

		invitations := api.Group("/invitations")
		{
			invitations.POST("/respond", h.Invitation.RespondInvitation)
			invitations.DELETE("/:id", h.Invitation.RevokeInvitation)
		}

		rooms := api.Group("/rooms")
		{
			rooms.GET("/:id", h.Room.GetRoom)
			rooms.PUT("/:id", h.Room.UpdateRoom)
			rooms.DELETE("/:id", h.Room.DeleteRoom)

			rooms.POST("/:id/join", h.Room.JoinRoom)
			rooms.POST("/:id/leave", h.Room.LeaveRoom)
			rooms.GET("/:id/participants", h.Room.ListParticipants)
			rooms.PUT("/:id/media", h.Room.UpdateMedia)

			rooms.GET("/:id/messages", h.Message.ListMessages)
			rooms.POST("/:id/messages", h.Message.SendMessage)
		}

		api.DELETE("/messages/:id", h.Message.DeleteMessage)

		presence := api.Group("/presence")
		{
			presence.POST("/heartbeat", h.Presence.Heartbeat)
			presence.POST("/offline", h.Presence.Offline)
			presence.GET("/online", h.Presence.ListOnline)
			presence.GET("/users/:id", h.Presence.GetUserStatus)
		}
	}

	ws := r.Group("/ws")
	ws.Use(middleware.AuthMiddleware(validator))
	{
		ws.GET("/:channel", h.WS.Serve)
	}

	return r
}

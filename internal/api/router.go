package api

import (
	"fmt"
	"log"
	"net/http"

	_ "github.com/adwaith-rk/threadly/docs"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/adwaith-rk/threadly/internal/api/handlers"
	"github.com/adwaith-rk/threadly/internal/api/middleware"
	"github.com/adwaith-rk/threadly/internal/config"
	"github.com/adwaith-rk/threadly/internal/messaging"
	"github.com/adwaith-rk/threadly/internal/realtime"
	"github.com/adwaith-rk/threadly/internal/repositories"
	"github.com/rs/cors"
)

func SetupRouter() http.Handler {
	mainMux := http.NewServeMux()
	c := cors.New(config.Envs.CorsConfig)

	hub := realtime.NewHub()
	handlers.ChannelMsgs = repositories.NewChannelMessages(repositories.DB)
	handlers.DirectMsgs = repositories.NewDirectMessages(repositories.DB)
	handlers.Messaging = messaging.NewService(
		handlers.ChannelMsgs,
		handlers.DirectMsgs,
		hub,
		messaging.NewPageCache(messaging.DefaultCacheTTL, nil),
		messaging.NewPipeline(config.Envs.HMACKey, 0),
		config.Envs.HMACKey,
	)

	// ---------- PUBLIC ROUTES ----------
	mainMux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "OK")
	})

	mainMux.HandleFunc("/docs/", httpSwagger.WrapHandler)

	authMux := http.NewServeMux()
	authMux.HandleFunc("/sign-up", handlers.RegisterUser)
	authMux.HandleFunc("/login", handlers.LoginUser)
	authMux.HandleFunc("/google/login", handlers.HandleGoogleLogin)
	authMux.HandleFunc("/google/callback", handlers.HandleGoogleCallback)

	mainMux.Handle("/api/v1/auth/",
		http.StripPrefix("/api/v1/auth", authMux),
	)

	mainMux.Handle("/ws", middleware.AuthMiddleware(hub))

	// ---------- PROTECTED ROUTES ----------
	protectedMux := http.NewServeMux()

	channelMux := http.NewServeMux()
	channelMux.HandleFunc("/", handlers.CreateChannel)
	channelMux.HandleFunc("/{channelId}/members", handlers.JoinChannel)
	channelMux.HandleFunc("/{channelId}/messages", handlers.ChannelMessages)
	channelMux.HandleFunc("/{channelId}/messages/{messageId}", handlers.ChannelMessageByID)

	dmMux := http.NewServeMux()
	dmMux.HandleFunc("/{recipientId}", handlers.DirectMessages)
	dmMux.HandleFunc("/{recipientId}/{messageId}", handlers.DirectMessageByID)

	fileMux := http.NewServeMux()
	fileMux.HandleFunc("/presign", handlers.PresignUpload)
	fileMux.HandleFunc("/download", handlers.PresignDownload)
	fileMux.HandleFunc("/verify", handlers.VerifyAttachment)

	protectedMux.Handle("/channels/",
		http.StripPrefix("/channels", channelMux),
	)
	protectedMux.Handle("/direct-messages/",
		http.StripPrefix("/direct-messages", dmMux),
	)
	protectedMux.Handle("/files/",
		http.StripPrefix("/files", fileMux),
	)

	protectedMux.HandleFunc("/auth/logout", handlers.Logout)

	mainMux.Handle("/api/v1/",
		http.StripPrefix(
			"/api/v1",
			middleware.AuthMiddleware(protectedMux),
		),
	)

	log.Println("Router initialized")
	handler := c.Handler(mainMux)
	handler = middleware.Logger(handler)
	return handler
}

package main

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"codeberg.org/sajtmaskin/server/internal/config"
	"codeberg.org/sajtmaskin/server/internal/coordinator"
	"codeberg.org/sajtmaskin/server/internal/kv"
	"codeberg.org/sajtmaskin/server/internal/progress"
	"codeberg.org/sajtmaskin/server/internal/projects"
	"codeberg.org/sajtmaskin/server/internal/v0"
)

// holds all dependencies and state for the API server
type Server struct {
	db          *pgxpool.Pool
	config      *config.Config
	projectRepo *projects.Repository
	store       *kv.RedisStore
	services    *Services
	hub         *progress.Hub
	router      *gin.Engine
}

// holds the generation service clients
type Services struct {
	Coordinator *coordinator.Coordinator
	Remote      *v0.Client
}

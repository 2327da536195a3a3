package services

import (
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.uber.org/zap"

	"github.com/grand-nerud/backoffice/internal/audit"
	"github.com/grand-nerud/backoffice/internal/masterdata"
	"github.com/grand-nerud/backoffice/internal/platform/db"
)

type (
	// Service handles service business logic.
	Service = masterdata.Service[ServiceType, CreateInput, UpdateInput]
	// Handler exposes service endpoints.
	Handler = masterdata.Handler[ServiceType, CreateInput, UpdateInput]
)

// NewRepository constructs a MongoDB repository.
func NewRepository(database *mongo.Database, logger *zap.Logger) *masterdata.MongoRepository[ServiceType] {
	return masterdata.NewRepository[ServiceType](database, CollectionName, logger)
}

// NewService builds Service instance.
func NewService(repo masterdata.Repository[ServiceType], deps masterdata.DependencyChecker) *Service {
	return masterdata.NewService(Definition(), repo, deps)
}

// NewHandler builds Handler instance.
func NewHandler(logger *zap.Logger, service *Service, recorder audit.Recorder) *Handler {
	return masterdata.NewHandler(logger, service, recorder)
}

// Indexes returns the indexes the services collection relies on.
func Indexes() []db.Index {
	return []db.Index{masterdata.UniqueIndex(CollectionName, unique)}
}

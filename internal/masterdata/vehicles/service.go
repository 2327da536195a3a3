package vehicles

import (
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.uber.org/zap"

	"github.com/grand-nerud/backoffice/internal/audit"
	"github.com/grand-nerud/backoffice/internal/masterdata"
	"github.com/grand-nerud/backoffice/internal/platform/db"
)

type (
	// Service handles vehicle business logic.
	Service = masterdata.Service[Vehicle, CreateInput, UpdateInput]
	// Handler exposes vehicle endpoints.
	Handler = masterdata.Handler[Vehicle, CreateInput, UpdateInput]
)

// NewRepository constructs a MongoDB repository.
func NewRepository(database *mongo.Database, logger *zap.Logger) *masterdata.MongoRepository[Vehicle] {
	return masterdata.NewRepository[Vehicle](database, CollectionName, logger)
}

// NewService builds Service instance.
func NewService(repo masterdata.Repository[Vehicle], deps masterdata.DependencyChecker) *Service {
	return masterdata.NewService(Definition(), repo, deps)
}

// NewHandler builds Handler instance.
func NewHandler(logger *zap.Logger, service *Service, recorder audit.Recorder) *Handler {
	return masterdata.NewHandler(logger, service, recorder)
}

// Indexes returns the indexes the vehicles collection relies on.
func Indexes() []db.Index {
	return []db.Index{masterdata.UniqueIndex(CollectionName, unique)}
}

package materials

import (
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.uber.org/zap"

	"github.com/grand-nerud/backoffice/internal/audit"
	"github.com/grand-nerud/backoffice/internal/masterdata"
	"github.com/grand-nerud/backoffice/internal/platform/db"
)

type (
	// Service handles material business logic.
	Service = masterdata.Service[Material, CreateInput, UpdateInput]
	// Handler exposes material endpoints.
	Handler = masterdata.Handler[Material, CreateInput, UpdateInput]
)

// NewRepository constructs a MongoDB repository.
func NewRepository(database *mongo.Database, logger *zap.Logger) *masterdata.MongoRepository[Material] {
	return masterdata.NewRepository[Material](database, CollectionName, logger)
}

// NewService builds Service instance.
func NewService(repo masterdata.Repository[Material], deps masterdata.DependencyChecker) *Service {
	return masterdata.NewService(Definition(), repo, deps)
}

// NewHandler builds Handler instance.
func NewHandler(logger *zap.Logger, service *Service, recorder audit.Recorder) *Handler {
	return masterdata.NewHandler(logger, service, recorder)
}

// Indexes returns the indexes the materials collection relies on.
func Indexes() []db.Index {
	return []db.Index{masterdata.UniqueIndex(CollectionName, unique)}
}

package addresses

import (
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.uber.org/zap"

	"github.com/grand-nerud/backoffice/internal/audit"
	"github.com/grand-nerud/backoffice/internal/masterdata"
	"github.com/grand-nerud/backoffice/internal/platform/db"
)

type (
	// Service handles address business logic.
	Service = masterdata.Service[Address, CreateInput, UpdateInput]
	// Handler exposes address endpoints.
	Handler = masterdata.Handler[Address, CreateInput, UpdateInput]
)

// NewRepository constructs a MongoDB repository.
func NewRepository(database *mongo.Database, logger *zap.Logger) *masterdata.MongoRepository[Address] {
	return masterdata.NewRepository[Address](database, CollectionName, logger)
}

// NewService builds Service instance.
func NewService(repo masterdata.Repository[Address], deps masterdata.DependencyChecker) *Service {
	return masterdata.NewService(Definition(), repo, deps)
}

// NewHandler builds Handler instance.
func NewHandler(logger *zap.Logger, service *Service, recorder audit.Recorder) *Handler {
	return masterdata.NewHandler(logger, service, recorder)
}

// Indexes returns the indexes the addresses collection relies on.
func Indexes() []db.Index {
	return []db.Index{
		{Collection: CollectionName, Name: "addresses_company", Keys: bson.D{{Key: "companyId", Value: 1}}},
	}
}

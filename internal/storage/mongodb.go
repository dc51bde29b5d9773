package storage

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"job-portal/internal/logger"
	"job-portal/pkg/portal"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	UsersCollection        = "users"
	JobsCollection         = "jobs"
	ApplicationsCollection = "applications"
)

type MongoStorage struct {
	client       *mongo.Client
	database     *mongo.Database
	users        *mongo.Collection
	jobs         *mongo.Collection
	applications *mongo.Collection
}

// NewMongoStorage connects and pings within timeout. Server selection is
// bounded by the same timeout so an unreachable host fails fast.
func NewMongoStorage(uri, dbName string, timeout time.Duration) (*MongoStorage, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	clientOptions := options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(timeout)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err = client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	database := client.Database(dbName)
	storage := &MongoStorage{
		client:       client,
		database:     database,
		users:        database.Collection(UsersCollection),
		jobs:         database.Collection(JobsCollection),
		applications: database.Collection(ApplicationsCollection),
	}

	// Unique indexes back ErrDuplicate, so a failure here is fatal.
	indexCtx, indexCancel := context.WithTimeout(context.Background(), timeout)
	defer indexCancel()
	if err := storage.createIndexes(indexCtx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to create indexes: %w", err)
	}
	logger.WithField("database", dbName).Info("MongoDB indexes ready")

	return storage, nil
}

func (m *MongoStorage) createIndexes(ctx context.Context) error {
	_, err := m.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetName("email_unique").SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("users indexes: %w", err)
	}

	_, err = m.jobs.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("status_created_idx"),
		},
		{
			Keys:    bson.D{{Key: "employer_id", Value: 1}},
			Options: options.Index().SetName("employer_id_idx"),
		},
	})
	if err != nil {
		return fmt.Errorf("jobs indexes: %w", err)
	}

	_, err = m.applications.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "job_id", Value: 1}, {Key: "applicant_id", Value: 1}},
			Options: options.Index().SetName("job_applicant_unique").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "applicant_id", Value: 1}},
			Options: options.Index().SetName("applicant_id_idx"),
		},
	})
	if err != nil {
		return fmt.Errorf("applications indexes: %w", err)
	}
	return nil
}

func (m *MongoStorage) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, nil)
}

func (m *MongoStorage) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return m.client.Disconnect(ctx)
}

func (m *MongoStorage) CreateUser(ctx context.Context, u *portal.User) error {
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	u.CreatedAt = time.Now().UTC()
	u.UpdatedAt = u.CreatedAt

	if _, err := m.users.InsertOne(ctx, u); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("user %s: %w", u.Email, ErrDuplicate)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (m *MongoStorage) GetUser(ctx context.Context, id primitive.ObjectID) (*portal.User, error) {
	var u portal.User
	if err := m.findOne(ctx, m.users, bson.M{"_id": id}, &u); err != nil {
		return nil, fmt.Errorf("user %s: %w", id.Hex(), err)
	}
	return &u, nil
}

func (m *MongoStorage) GetUserByEmail(ctx context.Context, email string) (*portal.User, error) {
	var u portal.User
	email = strings.ToLower(strings.TrimSpace(email))
	if err := m.findOne(ctx, m.users, bson.M{"email": email}, &u); err != nil {
		return nil, fmt.Errorf("user %s: %w", email, err)
	}
	return &u, nil
}

func (m *MongoStorage) UpdateUser(ctx context.Context, u *portal.User) error {
	u.UpdatedAt = time.Now().UTC()
	return m.replace(ctx, m.users, u.ID, u)
}

func (m *MongoStorage) CreateJob(ctx context.Context, j *portal.Job) error {
	if j.ID.IsZero() {
		j.ID = primitive.NewObjectID()
	}
	j.CreatedAt = time.Now().UTC()
	j.UpdatedAt = j.CreatedAt
	if j.Status == "" {
		j.Status = portal.JobStatusOpen
	}

	if _, err := m.jobs.InsertOne(ctx, j); err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}
	return nil
}

func (m *MongoStorage) GetJob(ctx context.Context, id primitive.ObjectID) (*portal.Job, error) {
	var j portal.Job
	if err := m.findOne(ctx, m.jobs, bson.M{"_id": id}, &j); err != nil {
		return nil, fmt.Errorf("job %s: %w", id.Hex(), err)
	}
	return &j, nil
}

func (m *MongoStorage) ListJobs(ctx context.Context, filter JobFilter) ([]*portal.Job, error) {
	mongoFilter := bson.M{}

	if filter.Query != "" {
		mongoFilter["title"] = primitive.Regex{Pattern: regexp.QuoteMeta(filter.Query), Options: "i"}
	}
	if filter.Location != "" {
		mongoFilter["location"] = primitive.Regex{Pattern: regexp.QuoteMeta(filter.Location), Options: "i"}
	}
	if filter.Type != "" {
		mongoFilter["type"] = filter.Type
	}
	if filter.Status != "" {
		mongoFilter["status"] = filter.Status
	}
	if !filter.EmployerID.IsZero() {
		mongoFilter["employer_id"] = filter.EmployerID
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}
	if filter.Offset > 0 {
		opts.SetSkip(int64(filter.Offset))
	}

	cursor, err := m.jobs.Find(ctx, mongoFilter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find jobs: %w", err)
	}
	defer cursor.Close(ctx)

	jobs := make([]*portal.Job, 0)
	if err := cursor.All(ctx, &jobs); err != nil {
		return nil, fmt.Errorf("failed to decode jobs: %w", err)
	}
	return jobs, nil
}

func (m *MongoStorage) UpdateJob(ctx context.Context, j *portal.Job) error {
	j.UpdatedAt = time.Now().UTC()
	return m.replace(ctx, m.jobs, j.ID, j)
}

func (m *MongoStorage) DeleteJob(ctx context.Context, id primitive.ObjectID) error {
	result, err := m.jobs.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete job: %w", err)
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("job %s: %w", id.Hex(), ErrNotFound)
	}

	// Applications for a removed posting are no longer reachable.
	if _, err := m.applications.DeleteMany(ctx, bson.M{"job_id": id}); err != nil {
		logger.WithError(err).WithField("job_id", id.Hex()).Warn("Failed to remove applications for deleted job")
	}
	return nil
}

func (m *MongoStorage) CreateApplication(ctx context.Context, a *portal.Application) error {
	if a.ID.IsZero() {
		a.ID = primitive.NewObjectID()
	}
	a.CreatedAt = time.Now().UTC()
	a.UpdatedAt = a.CreatedAt
	if a.Status == "" {
		a.Status = portal.ApplicationPending
	}

	if _, err := m.applications.InsertOne(ctx, a); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("application for job %s: %w", a.JobID.Hex(), ErrDuplicate)
		}
		return fmt.Errorf("failed to create application: %w", err)
	}
	return nil
}

func (m *MongoStorage) GetApplication(ctx context.Context, id primitive.ObjectID) (*portal.Application, error) {
	var a portal.Application
	if err := m.findOne(ctx, m.applications, bson.M{"_id": id}, &a); err != nil {
		return nil, fmt.Errorf("application %s: %w", id.Hex(), err)
	}
	return &a, nil
}

func (m *MongoStorage) ListApplications(ctx context.Context, filter ApplicationFilter) ([]*portal.Application, error) {
	mongoFilter := bson.M{}
	if !filter.JobID.IsZero() {
		mongoFilter["job_id"] = filter.JobID
	}
	if !filter.ApplicantID.IsZero() {
		mongoFilter["applicant_id"] = filter.ApplicantID
	}
	if filter.Status != "" {
		mongoFilter["status"] = filter.Status
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := m.applications.Find(ctx, mongoFilter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find applications: %w", err)
	}
	defer cursor.Close(ctx)

	apps := make([]*portal.Application, 0)
	if err := cursor.All(ctx, &apps); err != nil {
		return nil, fmt.Errorf("failed to decode applications: %w", err)
	}
	return apps, nil
}

func (m *MongoStorage) UpdateApplication(ctx context.Context, a *portal.Application) error {
	a.UpdatedAt = time.Now().UTC()
	return m.replace(ctx, m.applications, a.ID, a)
}

func (m *MongoStorage) DeleteApplication(ctx context.Context, id primitive.ObjectID) error {
	result, err := m.applications.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete application: %w", err)
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("application %s: %w", id.Hex(), ErrNotFound)
	}
	return nil
}

func (m *MongoStorage) findOne(ctx context.Context, coll *mongo.Collection, filter bson.M, out interface{}) error {
	err := coll.FindOne(ctx, filter).Decode(out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	return err
}

func (m *MongoStorage) replace(ctx context.Context, coll *mongo.Collection, id primitive.ObjectID, doc interface{}) error {
	result, err := coll.ReplaceOne(ctx, bson.M{"_id": id}, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%s %s: %w", coll.Name(), id.Hex(), ErrDuplicate)
		}
		return fmt.Errorf("failed to update %s: %w", coll.Name(), err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%s %s: %w", coll.Name(), id.Hex(), ErrNotFound)
	}
	return nil
}

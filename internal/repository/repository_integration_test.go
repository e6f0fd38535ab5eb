//go:build integration

package repository_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"tale-forge/internal/database"
	"tale-forge/internal/models"
	"tale-forge/internal/repository"

	"github.com/docker/docker/client"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
)

type RepositoryIntegrationSuite struct {
	suite.Suite
	ctx         context.Context
	pgContainer *postgres.PostgresContainer
	pool        *pgxpool.Pool
	logger      *zap.Logger

	stories   repository.StoryRepository
	segments  repository.SegmentRepository
	credits   repository.CreditRepository
	customers repository.CustomerRepository
	tx        *database.TransactionHelper
	writer    *repository.SegmentWriter
}

func (s *RepositoryIntegrationSuite) SetupSuite() {
	s.ctx = context.Background()
	s.logger = zap.NewNop()

	var err error
	s.pgContainer, err = postgres.Run(s.ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("tale_forge_test"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Minute),
		),
	)
	require.NoError(s.T(), err, "Failed to start postgres container")

	dsn, err := s.pgContainer.ConnectionString(s.ctx, "sslmode=disable")
	require.NoError(s.T(), err)

	s.pool, err = database.Connect(s.ctx, database.PoolConfig{DSN: dsn, MaxRetries: 5, RetryDelay: time.Second}, s.logger)
	require.NoError(s.T(), err)
	require.NoError(s.T(), database.ApplyMigrations(s.pool, s.logger))

	s.stories = repository.NewPgStoryRepository(s.pool, s.logger)
	s.segments = repository.NewPgSegmentRepository(s.pool, s.logger)
	s.credits = repository.NewPgCreditRepository(s.pool, s.logger)
	s.customers = repository.NewPgCustomerRepository(s.pool, s.logger)
	s.tx = database.NewTransactionHelper(s.pool, s.logger)
	s.writer = repository.NewSegmentWriter(s.tx, s.stories, s.segments, s.credits, s.logger)
}

func (s *RepositoryIntegrationSuite) TearDownSuite() {
	if s.pool != nil {
		s.pool.Close()
	}
	if s.pgContainer != nil {
		_ = s.pgContainer.Terminate(s.ctx)
	}
}

func (s *RepositoryIntegrationSuite) SetupTest() {
	_, err := s.pool.Exec(s.ctx, `TRUNCATE story_choices, story_segments, stories, credit_transactions, user_credits, billing_customers`)
	require.NoError(s.T(), err)
}

func TestRepositoryIntegrationSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration tests in short mode")
	}
	cli, err := client.NewClientWithOpts(client.FromEnv)
	if err != nil {
		t.Skipf("Docker client init error: %v", err)
	}
	if _, err := cli.Ping(context.Background()); err != nil {
		t.Skipf("Docker daemon is not running or accessible: %v", err)
	}
	cli.Close()

	suite.Run(t, new(RepositoryIntegrationSuite))
}

func (s *RepositoryIntegrationSuite) fund(userID uuid.UUID, amount int) {
	_, err := s.credits.Grant(s.ctx, s.pool, userID, amount)
	s.Require().NoError(err)
}

func (s *RepositoryIntegrationSuite) startStory(userID uuid.UUID, chapters, charge int) (*models.Story, *repository.WriteSegmentResult, error) {
	story := &models.Story{
		ID:              uuid.New(),
		UserID:          userID,
		Title:           "The Lost Kite",
		Genre:           "adventure",
		TargetAge:       "7-9",
		Characters:      []string{"Mia", "Otto"},
		Setting:         "a windy hill",
		Chapters:        chapters,
		WordsPerChapter: 150,
	}
	res, err := s.writer.WriteSegment(s.ctx, repository.WriteSegmentParams{
		Story:             story,
		IsNewStory:        true,
		Segment:           models.StorySegment{Position: 0, Content: "Mia saw the kite fly away.", Provider: "primary"},
		Choices:           []string{"Chase it", "Ask Otto", "Go home"},
		Charge:            charge,
		ChargeDescription: "Story generation",
	})
	return story, res, err
}

func (s *RepositoryIntegrationSuite) TestWriteSegment_ChargesAndRecordsLedger() {
	userID := uuid.New()
	s.fund(userID, 10)

	story, res, err := s.startStory(userID, 5, 5)
	s.Require().NoError(err)
	s.Equal(5, res.Charged)
	s.Require().NotNil(res.Balance)
	s.Equal(5, *res.Balance)

	balance, err := s.credits.GetBalance(s.ctx, userID)
	s.Require().NoError(err)
	s.Equal(5, balance)

	entries, err := s.credits.ListTransactions(s.ctx, userID, 10, 0)
	s.Require().NoError(err)
	s.Require().Len(entries, 1)
	s.Equal(-5, entries[0].Amount)
	s.Equal(5, entries[0].BalanceAfter)
	s.Require().NotNil(entries[0].ReferenceID)
	s.Equal(story.ID, *entries[0].ReferenceID)

	credits, err := s.credits.GetCredits(s.ctx, userID)
	s.Require().NoError(err)
	s.Equal(10, credits.LifetimeEarned)
	s.Equal(5, credits.LifetimeSpent)

	stored, err := s.stories.GetByIDForUser(s.ctx, story.ID, userID)
	s.Require().NoError(err)
	s.Equal([]string{"Mia", "Otto"}, stored.Characters)
	s.Equal(models.StoryStatusDraft, stored.Status)
}

func (s *RepositoryIntegrationSuite) TestWriteSegment_InsufficientCreditsWritesNothing() {
	userID := uuid.New()
	s.fund(userID, 3)

	story, _, err := s.startStory(userID, 5, 5)
	s.Require().ErrorIs(err, models.ErrInsufficientCredits)

	_, err = s.stories.GetByIDForUser(s.ctx, story.ID, userID)
	s.ErrorIs(err, models.ErrStoryNotFound)

	balance, err := s.credits.GetBalance(s.ctx, userID)
	s.Require().NoError(err)
	s.Equal(3, balance)
}

func (s *RepositoryIntegrationSuite) TestWriteSegment_ContinuationLinksChoiceAndCompletes() {
	userID := uuid.New()
	story, first, err := s.startStory(userID, 2, 0)
	s.Require().NoError(err)

	_, err = s.writer.WriteSegment(s.ctx, repository.WriteSegmentParams{
		Story:       story,
		Segment:     models.StorySegment{Position: 1, Content: "They caught the kite together."},
		Choices:     []string{"Fly it again", "Fold it", "Give it away"},
		TakenChoice: &repository.ChoiceLink{SegmentID: first.Segment.ID, Position: 1},
		Complete:    true,
	})
	s.Require().NoError(err)

	segments, err := s.segments.ListByStory(s.ctx, story.ID)
	s.Require().NoError(err)
	s.Require().Len(segments, 2)
	s.Require().Len(segments[0].Choices, 3)
	s.Nil(segments[0].Choices[0].NextSegmentID)
	s.Require().NotNil(segments[0].Choices[1].NextSegmentID)
	s.Equal(segments[1].ID, *segments[0].Choices[1].NextSegmentID)

	last, err := s.segments.GetLast(s.ctx, story.ID)
	s.Require().NoError(err)
	s.Equal(1, last.Position)
	s.Len(last.Choices, 3)

	stored, err := s.stories.GetByIDForUser(s.ctx, story.ID, userID)
	s.Require().NoError(err)
	s.Equal(models.StoryStatusCompleted, stored.Status)
}

func (s *RepositoryIntegrationSuite) TestWriteSegment_ConcurrentAppendAtSamePosition() {
	userID := uuid.New()
	story, first, err := s.startStory(userID, 5, 0)
	s.Require().NoError(err)
	s.fund(userID, 10)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.writer.WriteSegment(s.ctx, repository.WriteSegmentParams{
				Story:       story,
				Segment:     models.StorySegment{Position: 1, Content: "A gust of wind."},
				Choices:     []string{"a", "b", "c"},
				TakenChoice: &repository.ChoiceLink{SegmentID: first.Segment.ID, Position: i},
				Charge:      1,
			})
		}(i)
	}
	wg.Wait()

	var failed int
	for _, err := range errs {
		if err != nil {
			s.ErrorIs(err, models.ErrSegmentPositionTaken)
			failed++
		}
	}
	s.Equal(1, failed)

	balance, err := s.credits.GetBalance(s.ctx, userID)
	s.Require().NoError(err)
	s.Equal(9, balance, "only the winning append is charged")
}

func (s *RepositoryIntegrationSuite) TestCascadeDelete() {
	userID := uuid.New()
	story, _, err := s.startStory(userID, 3, 0)
	s.Require().NoError(err)

	err = s.tx.WithTransaction(s.ctx, func(ctx context.Context, tx database.DBTX) error {
		removed, err := s.segments.DeleteByStory(ctx, tx, story.ID)
		if err != nil {
			return err
		}
		s.Equal(int64(1), removed)
		return s.stories.Delete(ctx, tx, story.ID)
	})
	s.Require().NoError(err)

	_, err = s.stories.GetByIDForUser(s.ctx, story.ID, userID)
	s.ErrorIs(err, models.ErrStoryNotFound)
	segments, err := s.segments.ListByStory(s.ctx, story.ID)
	s.Require().NoError(err)
	s.Empty(segments)
}

func (s *RepositoryIntegrationSuite) TestStoryOwnershipAndStatus() {
	owner := uuid.New()
	story, _, err := s.startStory(owner, 3, 0)
	s.Require().NoError(err)

	_, err = s.stories.GetByIDForUser(s.ctx, story.ID, uuid.New())
	s.ErrorIs(err, models.ErrStoryNotFound)

	s.ErrorIs(s.stories.UpdateStatus(s.ctx, story.ID, uuid.New(), models.StoryStatusPublished), models.ErrStoryNotFound)
	s.Require().NoError(s.stories.UpdateStatus(s.ctx, story.ID, owner, models.StoryStatusPublished))

	list, err := s.stories.ListByUser(s.ctx, owner, 10, 0)
	s.Require().NoError(err)
	s.Require().Len(list, 1)
	s.Equal(models.StoryStatusPublished, list[0].Status)

	s.Require().NoError(s.stories.MarkCompleted(s.ctx, s.pool, story.ID))
	s.ErrorIs(s.stories.UpdateStatus(s.ctx, story.ID, owner, models.StoryStatusDraft), models.ErrStoryNotFound)
	got, err := s.stories.GetByIDForUser(s.ctx, story.ID, owner)
	s.Require().NoError(err)
	s.Equal(models.StoryStatusCompleted, got.Status)
}

func (s *RepositoryIntegrationSuite) TestCustomerMappingKeepsFirstRecord() {
	userID := uuid.New()

	first, err := s.customers.Create(s.ctx, &models.BillingCustomer{UserID: userID, StripeCustomerID: "cus_first"})
	s.Require().NoError(err)
	s.Equal("cus_first", first.StripeCustomerID)

	second, err := s.customers.Create(s.ctx, &models.BillingCustomer{UserID: userID, StripeCustomerID: "cus_second"})
	s.Require().NoError(err)
	s.Equal("cus_first", second.StripeCustomerID)

	enabled, err := s.customers.IsAudioEnabled(s.ctx, userID)
	s.Require().NoError(err)
	s.False(enabled)

	s.Require().NoError(s.customers.SetAudioEnabled(s.ctx, userID, true))
	enabled, err = s.customers.IsAudioEnabled(s.ctx, userID)
	s.Require().NoError(err)
	s.True(enabled)

	s.ErrorIs(s.customers.SetAudioEnabled(s.ctx, uuid.New(), true), models.ErrNotFound)
}

func (s *RepositoryIntegrationSuite) TestBalanceDefaultsToZero() {
	balance, err := s.credits.GetBalance(s.ctx, uuid.New())
	s.Require().NoError(err)
	s.Zero(balance)

	_, err = s.credits.Debit(s.ctx, s.pool, uuid.New(), 1)
	s.ErrorIs(err, models.ErrInsufficientCredits)
}

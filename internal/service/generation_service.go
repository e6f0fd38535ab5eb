package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"tale-forge/internal/ai"
	"tale-forge/internal/credits"
	"tale-forge/internal/models"
	"tale-forge/internal/prompt"
	"tale-forge/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type GenerationKind string

const (
	GenerationKindStart    GenerationKind = "start"
	GenerationKindContinue GenerationKind = "continue"
)

type StartStoryInput struct {
	Title           string
	Description     string
	Genre           string
	TargetAge       string
	Characters      []string
	Setting         string
	Chapters        int
	WordsPerChapter int
	IncludeAudio    bool
}

type ContinueStoryInput struct {
	StoryID     uuid.UUID
	ChoiceIndex int
}

// GenerateInput is a tagged union: exactly one of Start and Continue is set,
// matching Kind.
type GenerateInput struct {
	Kind     GenerationKind
	Start    *StartStoryInput
	Continue *ContinueStoryInput
}

type GenerationOutcome struct {
	Story           models.Story
	Segment         models.StorySegment
	Charged         int
	Balance         int
	Provider        string
	FallbackChoices bool
}

// GenerationService runs the generation pipeline for one request.
type GenerationService interface {
	Generate(ctx context.Context, identity models.Identity, input GenerateInput) (*GenerationOutcome, error)
}

type generationServiceImpl struct {
	stories   repository.StoryRepository
	segments  repository.SegmentRepository
	customers repository.CustomerRepository
	gate      *credits.Gate
	generator ai.SegmentGenerator
	writer    repository.Writer
	logger    *zap.Logger
}

var _ GenerationService = (*generationServiceImpl)(nil)

func NewGenerationService(
	stories repository.StoryRepository,
	segments repository.SegmentRepository,
	customers repository.CustomerRepository,
	gate *credits.Gate,
	generator ai.SegmentGenerator,
	writer repository.Writer,
	logger *zap.Logger,
) GenerationService {
	return &generationServiceImpl{
		stories:   stories,
		segments:  segments,
		customers: customers,
		gate:      gate,
		generator: generator,
		writer:    writer,
		logger:    logger.Named("GenerationService"),
	}
}

// plan is a validated, priced request ready for the provider call.
type plan struct {
	story      *models.Story
	isNew      bool
	context    prompt.StoryContext
	position   int
	takenLink  *repository.ChoiceLink
	charge     int
	chargeNote string
}

// Generate: Validated → CostCalculated → AffordabilityChecked → Generating →
// Persisted. The provider is never called when the gate rejects, and nothing
// is written or charged when generation fails.
func (s *generationServiceImpl) Generate(ctx context.Context, identity models.Identity, input GenerateInput) (*GenerationOutcome, error) {
	kind := string(input.Kind)
	log := s.logger.With(zap.String("userID", identity.UserID.String()), zap.String("kind", kind))

	var p *plan
	var err error
	switch input.Kind {
	case GenerationKindStart:
		if input.Start == nil {
			err = models.NewValidationError("start payload is required")
			break
		}
		p, err = s.planStart(ctx, identity, *input.Start)
	case GenerationKindContinue:
		if input.Continue == nil {
			err = models.NewValidationError("continue payload is required")
			break
		}
		p, err = s.planContinue(ctx, identity, *input.Continue)
	default:
		err = models.NewValidationError(fmt.Sprintf("unknown kind %q, expected \"start\" or \"continue\"", kind))
	}
	if err != nil {
		generationRequests.WithLabelValues(kind, outcomeFor(err)).Inc()
		return nil, err
	}

	affordability, err := s.gate.Check(ctx, identity.UserID, p.charge)
	if err != nil {
		generationRequests.WithLabelValues(kind, outcomeError).Inc()
		return nil, err
	}
	if !affordability.CanAfford {
		log.Info("Generation rejected: insufficient credits",
			zap.Int("balance", affordability.Balance), zap.Int("cost", affordability.Cost))
		generationRequests.WithLabelValues(kind, outcomeRejected).Inc()
		return nil, fmt.Errorf("%w: balance %d, cost %d", models.ErrInsufficientCredits, affordability.Balance, affordability.Cost)
	}

	generated, err := s.generator.GenerateSegment(ctx, identity.UserID.String(), p.context)
	if err != nil {
		log.Error("Segment generation failed", zap.Error(err))
		generationRequests.WithLabelValues(kind, outcomeAIFailed).Inc()
		return nil, err
	}

	result, err := s.writer.WriteSegment(ctx, repository.WriteSegmentParams{
		Story:      p.story,
		IsNewStory: p.isNew,
		Segment: models.StorySegment{
			ID:       uuid.New(),
			Position: p.position,
			Content:  generated.Content,
			Provider: generated.Provider,
		},
		Choices:           generated.Choices,
		TakenChoice:       p.takenLink,
		Complete:          p.position+1 >= p.story.Chapters,
		Charge:            p.charge,
		ChargeDescription: p.chargeNote,
	})
	if err != nil {
		generationRequests.WithLabelValues(kind, outcomePersistFail).Inc()
		return nil, err
	}

	balance := affordability.Balance
	if result.Balance != nil {
		balance = *result.Balance
	}
	if result.Charged > 0 {
		creditsCharged.Add(float64(result.Charged))
	}
	generationRequests.WithLabelValues(kind, outcomeSuccess).Inc()
	log.Info("Segment generated and stored",
		zap.String("storyID", p.story.ID.String()),
		zap.Int("position", p.position),
		zap.String("provider", generated.Provider),
		zap.Bool("fallbackChoices", generated.FallbackChoices),
		zap.Int("charged", result.Charged))

	return &GenerationOutcome{
		Story:           *p.story,
		Segment:         result.Segment,
		Charged:         result.Charged,
		Balance:         balance,
		Provider:        generated.Provider,
		FallbackChoices: generated.FallbackChoices,
	}, nil
}

// planStart prices the whole story plan; later chapters are prepaid.
func (s *generationServiceImpl) planStart(ctx context.Context, identity models.Identity, in StartStoryInput) (*plan, error) {
	var problems []string

	genre := strings.TrimSpace(in.Genre)
	if genre == "" {
		problems = append(problems, "genre is required")
	}
	targetAge, err := prompt.ValidateTargetAge(in.TargetAge)
	if err != nil {
		problems = append(problems, err.Error())
	}
	characters := make([]string, 0, len(in.Characters))
	for _, c := range in.Characters {
		if c = strings.TrimSpace(c); c != "" {
			characters = append(characters, c)
		}
	}

	entitled := identity.IsAdmin()
	if in.IncludeAudio && !entitled {
		entitled, err = s.customers.IsAudioEnabled(ctx, identity.UserID)
		if err != nil {
			return nil, fmt.Errorf("%w: audio entitlement: %w", models.ErrDatabase, err)
		}
	}

	params := credits.StoryParams{Chapters: in.Chapters, WordsPerChapter: in.WordsPerChapter}
	cost, err := credits.CalculateGenerationCost(params, in.IncludeAudio, entitled)
	if err != nil {
		var verr *models.ValidationError
		if !errors.As(err, &verr) {
			return nil, err
		}
		problems = append(problems, verr.Errors...)
	}
	if len(problems) > 0 {
		return nil, models.NewValidationError(problems...)
	}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = "Untitled " + genre + " story"
	}
	story := &models.Story{
		ID:              uuid.New(),
		UserID:          identity.UserID,
		Title:           title,
		Description:     strings.TrimSpace(in.Description),
		Genre:           genre,
		TargetAge:       targetAge,
		Characters:      characters,
		Setting:         strings.TrimSpace(in.Setting),
		Chapters:        in.Chapters,
		WordsPerChapter: in.WordsPerChapter,
		IncludeAudio:    in.IncludeAudio,
		Status:          models.StoryStatusDraft,
	}

	charge := cost.Total
	if identity.IsAdmin() {
		charge = 0
	}
	return &plan{
		story:      story,
		isNew:      true,
		context:    storyContext(story, 0, nil, ""),
		position:   0,
		charge:     charge,
		chargeNote: fmt.Sprintf("Story %q: %s", title, strings.Join(cost.Breakdown, "; ")),
	}, nil
}

// planContinue appends the next chapter of an existing story at no charge.
func (s *generationServiceImpl) planContinue(ctx context.Context, identity models.Identity, in ContinueStoryInput) (*plan, error) {
	story, err := s.stories.GetByIDForUser(ctx, in.StoryID, identity.UserID)
	if err != nil {
		return nil, err
	}
	segments, err := s.segments.ListByStory(ctx, story.ID)
	if err != nil {
		return nil, err
	}
	if len(segments) == 0 {
		return nil, fmt.Errorf("%w: story %s has no segments", models.ErrDatabase, story.ID)
	}

	last := segments[len(segments)-1]
	position := last.Position + 1
	if position >= story.Chapters {
		return nil, fmt.Errorf("%w: %d of %d chapters written", models.ErrStoryCompleted, position, story.Chapters)
	}
	if in.ChoiceIndex < 0 || in.ChoiceIndex >= len(last.Choices) {
		return nil, models.NewValidationError(
			fmt.Sprintf("choice_index must be between 0 and %d, got %d", len(last.Choices)-1, in.ChoiceIndex))
	}
	chosen := last.Choices[in.ChoiceIndex]

	previous := make([]string, len(segments))
	for i, seg := range segments {
		previous[i] = seg.Content
	}

	return &plan{
		story:     story,
		context:   storyContext(story, position, previous, chosen.Text),
		position:  position,
		takenLink: &repository.ChoiceLink{SegmentID: last.ID, Position: chosen.Position},
	}, nil
}

func storyContext(story *models.Story, position int, previous []string, chosen string) prompt.StoryContext {
	return prompt.StoryContext{
		Title:            story.Title,
		Description:      story.Description,
		Genre:            story.Genre,
		TargetAge:        story.TargetAge,
		Characters:       story.Characters,
		Setting:          story.Setting,
		WordsPerChapter:  story.WordsPerChapter,
		ChapterNumber:    position + 1,
		TotalChapters:    story.Chapters,
		PreviousSegments: previous,
		ChosenChoice:     chosen,
	}
}

func outcomeFor(err error) string {
	switch {
	case errors.Is(err, models.ErrInvalidInput), errors.Is(err, models.ErrStoryCompleted):
		return outcomeInvalid
	case errors.Is(err, models.ErrStoryNotFound):
		return outcomeRejected
	}
	return outcomeError
}

package task_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/frahmantamala/plant-maintenance/internal"
	"github.com/frahmantamala/plant-maintenance/internal/auth"
	taskDatamodel "github.com/frahmantamala/plant-maintenance/internal/core/datamodel/task"
	"github.com/frahmantamala/plant-maintenance/internal/core/events"
	"github.com/frahmantamala/plant-maintenance/internal/inventory"
	"github.com/frahmantamala/plant-maintenance/internal/task"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestTaskService(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Task Service Suite")
}

// MockRepository implements task.RepositoryAPI over in-memory tasks and part stock.
type MockRepository struct {
	tasks      map[string]*taskDatamodel.Task
	stock      map[string]int
	shouldFail bool
	failError  error
}

func NewMockRepository() *MockRepository {
	return &MockRepository{
		tasks: make(map[string]*taskDatamodel.Task),
		stock: make(map[string]int),
	}
}

func (m *MockRepository) List(ctx context.Context, filter task.ListFilter) ([]*taskDatamodel.Task, error) {
	if m.shouldFail {
		return nil, m.failError
	}
	var out []*taskDatamodel.Task
	for _, row := range m.tasks {
		if filter.ParticipantID != "" {
			mine := row.AssignedTo == filter.ParticipantID
			if !filter.AssigneeOnly {
				mine = mine || row.AssignedBy == filter.ParticipantID
			}
			if !mine {
				continue
			}
		}
		if filter.Status != "" && row.Status != string(filter.Status) {
			continue
		}
		cp := *row
		out = append(out, &cp)
	}
	return out, nil
}

func (m *MockRepository) GetByID(ctx context.Context, id string) (*taskDatamodel.Task, error) {
	row, ok := m.tasks[id]
	if !ok {
		return nil, task.ErrTaskNotFound
	}
	cp := *row
	return &cp, nil
}

func (m *MockRepository) Create(ctx context.Context, row *taskDatamodel.Task) error {
	if m.shouldFail {
		return m.failError
	}
	m.tasks[row.ID] = row
	return nil
}

func (m *MockRepository) Save(ctx context.Context, row *taskDatamodel.Task, replaceParts bool) error {
	if m.shouldFail {
		return m.failError
	}
	existing, ok := m.tasks[row.ID]
	if !ok {
		return task.ErrTaskNotFound
	}
	if !replaceParts {
		row.Parts = existing.Parts
	}
	row.Status = existing.Status
	row.Rating = existing.Rating
	row.CompletedAt, row.CompletedBy = existing.CompletedAt, existing.CompletedBy
	row.ApprovedAt, row.ApprovedBy = existing.ApprovedAt, existing.ApprovedBy
	row.InventoryAppliedAt = existing.InventoryAppliedAt
	m.tasks[row.ID] = row
	return nil
}

func (m *MockRepository) SaveRating(ctx context.Context, id string, rating int, updatedAt time.Time) error {
	if m.shouldFail {
		return m.failError
	}
	row, ok := m.tasks[id]
	if !ok {
		return task.ErrTaskNotFound
	}
	if row.Status != string(task.StatusCompleted) {
		return task.ErrRatingNotAllowed
	}
	row.Rating = &rating
	row.UpdatedAt = updatedAt
	return nil
}

func (m *MockRepository) Delete(ctx context.Context, id string) error {
	if m.shouldFail {
		return m.failError
	}
	if _, ok := m.tasks[id]; !ok {
		return task.ErrTaskNotFound
	}
	delete(m.tasks, id)
	return nil
}

func (m *MockRepository) SaveTransition(ctx context.Context, row *taskDatamodel.Task, consumptions []inventory.Consumption) (*task.InventoryResult, error) {
	if m.shouldFail {
		return nil, m.failError
	}
	stored, ok := m.tasks[row.ID]
	if !ok {
		return nil, task.ErrTaskNotFound
	}
	if stored.InventoryAppliedAt != nil {
		row.InventoryAppliedAt = stored.InventoryAppliedAt
		consumptions = nil
	}
	row.Parts = stored.Parts
	m.tasks[row.ID] = row

	result := &task.InventoryResult{PartNames: map[string]string{}}
	if len(consumptions) == 0 {
		return result, nil
	}
	result.Updates, result.Skipped = inventory.ApplyCompletion(consumptions, m.stock, *row.InventoryAppliedAt)
	for _, u := range result.Updates {
		m.stock[u.PartID] = u.NewStock
		result.PartNames[u.PartID] = "Part " + u.PartID
	}
	return result, nil
}

type mockDirectory struct {
	names map[string]string
}

func (d *mockDirectory) Directory(ctx context.Context, ids []string) (map[string]string, error) {
	out := make(map[string]string)
	for _, id := range ids {
		if name, ok := d.names[id]; ok {
			out[id] = name
		}
	}
	return out, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.EventType()
	}
	return out
}

func (p *recordingPublisher) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = nil
}

var _ = Describe("Task Service", func() {
	var (
		repo      *MockRepository
		publisher *recordingPublisher
		service   *task.Service
		ctx       context.Context
	)

	seed := func(id string, status task.Status, parts ...taskDatamodel.TaskPart) {
		repo.tasks[id] = &taskDatamodel.Task{
			ID:         id,
			Name:       "Replace belt",
			AssignedBy: alice.ID,
			AssignedTo: bob.ID,
			Status:     string(status),
			Priority:   string(task.PriorityHigh),
			Parts:      parts,
			CreatedAt:  time.Now().Add(-time.Hour),
			UpdatedAt:  time.Now().Add(-time.Hour),
		}
	}

	BeforeEach(func() {
		repo = NewMockRepository()
		publisher = &recordingPublisher{}
		directory := &mockDirectory{names: map[string]string{
			alice.ID: alice.FullName,
			bob.ID:   bob.FullName,
			carol.ID: carol.FullName,
			dana.ID:  dana.FullName,
			root.ID:  root.FullName,
		}}
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		service = task.NewService(repo, directory, publisher, 5, logger)
		ctx = context.Background()
	})

	Describe("Create", func() {
		It("should create a pending task assigned by the actor", func() {
			t, err := service.Create(ctx, alice, task.CreateTaskDTO{
				Name:       "  Lubricate conveyor ",
				AssignedTo: bob.ID,
				Parts:      []inventory.Consumption{{PartID: "P1", Quantity: 2}},
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(t.ID).NotTo(BeEmpty())
			Expect(t.Name).To(Equal("Lubricate conveyor"))
			Expect(t.Status).To(Equal(task.StatusPending))
			Expect(t.Priority).To(Equal(task.PriorityMedium))
			Expect(t.AssignedBy).To(Equal(alice.ID))
			Expect(t.AssignedToName).To(Equal(bob.FullName))
			Expect(repo.tasks[t.ID].Parts).To(HaveLen(1))
			Expect(publisher.types()).To(Equal([]string{events.EventTypeTaskAssigned, events.EventTypeCollectionChanged}))
		})

		It("should deny employees without manage_tasks", func() {
			_, err := service.Create(ctx, bob, task.CreateTaskDTO{Name: "X", AssignedTo: carol.ID})
			Expect(err).To(Equal(internal.ErrAuthorizationDenied))
		})

		It("should reject an unknown assignee", func() {
			_, err := service.Create(ctx, alice, task.CreateTaskDTO{Name: "X", AssignedTo: "nobody"})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeValidation))
			Expect(repo.tasks).To(BeEmpty())
		})

		It("should reject non-positive part quantities", func() {
			_, err := service.Create(ctx, alice, task.CreateTaskDTO{
				Name:       "X",
				AssignedTo: bob.ID,
				Parts:      []inventory.Consumption{{PartID: "P1", Quantity: 0}},
			})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeValidationFailed))
		})

		It("should wrap store failures", func() {
			repo.shouldFail = true
			repo.failError = errors.New("connection reset")

			_, err := service.Create(ctx, root, task.CreateTaskDTO{Name: "X", AssignedTo: bob.ID})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeStore))
			Expect(publisher.types()).To(BeEmpty())
		})
	})

	Describe("List and GetByID", func() {
		BeforeEach(func() {
			seed("T1", task.StatusPending)
			repo.tasks["T2"] = &taskDatamodel.Task{ID: "T2", Name: "Check boiler", AssignedBy: dana.ID, AssignedTo: carol.ID, Status: string(task.StatusPending)}
		})

		It("should return every task to an admin", func() {
			tasks, err := service.List(ctx, root, task.ListFilter{})
			Expect(err).NotTo(HaveOccurred())
			Expect(tasks).To(HaveLen(2))
		})

		It("should scope employees to their own tasks", func() {
			tasks, err := service.List(ctx, bob, task.ListFilter{})
			Expect(err).NotTo(HaveOccurred())
			Expect(tasks).To(HaveLen(1))
			Expect(tasks[0].ID).To(Equal("T1"))
			Expect(tasks[0].AssignedByName).To(Equal(alice.FullName))
		})

		It("should return nothing to an unknown role", func() {
			tasks, err := service.List(ctx, &auth.Principal{ID: "x", Role: auth.Role("Guest")}, task.ListFilter{})
			Expect(err).NotTo(HaveOccurred())
			Expect(tasks).To(BeEmpty())
		})

		It("should fail closed without a profile", func() {
			_, err := service.List(ctx, nil, task.ListFilter{})
			Expect(err).To(Equal(auth.ErrProfileNotFound))
		})

		It("should deny reading another employee's task", func() {
			_, err := service.GetByID(ctx, carol, "T1")
			Expect(err).To(Equal(internal.ErrAuthorizationDenied))
		})

		It("should report missing tasks", func() {
			_, err := service.GetByID(ctx, root, "nope")
			Expect(err).To(Equal(task.ErrTaskNotFound))
		})

		It("should compute stats over visible tasks only", func() {
			stats, err := service.Stats(ctx, dana)
			Expect(err).NotTo(HaveOccurred())
			Expect(stats.Total).To(Equal(1))
			Expect(stats.ByStatus[task.StatusPending]).To(Equal(1))
		})
	})

	Describe("Options", func() {
		BeforeEach(func() {
			seed("T1", task.StatusInProgress)
		})

		It("should give an unrelated employee a read-only view", func() {
			opts, err := service.Options(ctx, carol, "T1")
			Expect(err).NotTo(HaveOccurred())
			Expect(opts.Targets).To(Equal([]task.Status{task.StatusInProgress}))
			Expect(opts.CanTransition).To(BeFalse())
		})

		It("should give a manager who did not assign the task a read-only view", func() {
			opts, err := service.Options(ctx, dana, "T1")
			Expect(err).NotTo(HaveOccurred())
			Expect(opts.Targets).To(Equal([]task.Status{task.StatusInProgress}))
		})

		It("should offer the assignee the next step", func() {
			opts, err := service.Options(ctx, bob, "T1")
			Expect(err).NotTo(HaveOccurred())
			Expect(opts.Targets).To(Equal([]task.Status{task.StatusInProgress, task.StatusReadyForReview}))
			Expect(opts.CanTransition).To(BeTrue())
		})
	})

	Describe("Transition", func() {
		BeforeEach(func() {
			repo.stock["P1"] = 8
			repo.stock["P2"] = 2
			seed("T1", task.StatusPending,
				taskDatamodel.TaskPart{TaskID: "T1", PartID: "P1", Quantity: 5, Position: 0},
				taskDatamodel.TaskPart{TaskID: "T1", PartID: "P2", Quantity: 5, Position: 1},
			)
		})

		move := func(actor *auth.Principal, to task.Status) (*task.TransitionResult, error) {
			return service.Transition(ctx, actor, "T1", task.TransitionDTO{Status: to})
		}

		It("should complete the task and decrement stock once", func() {
			_, err := move(bob, task.StatusInProgress)
			Expect(err).NotTo(HaveOccurred())
			_, err = move(bob, task.StatusReadyForReview)
			Expect(err).NotTo(HaveOccurred())

			_, err = move(bob, task.StatusCompleted)
			Expect(err).To(Equal(task.ErrIllegalTransition))
			Expect(repo.stock["P1"]).To(Equal(8))

			publisher.reset()
			result, err := move(alice, task.StatusCompleted)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.From).To(Equal(task.StatusReadyForReview))
			Expect(result.To).To(Equal(task.StatusCompleted))
			Expect(result.PartUpdates).To(HaveLen(2))
			Expect(repo.stock["P1"]).To(Equal(3))
			Expect(repo.stock["P2"]).To(Equal(0))
			Expect(repo.tasks["T1"].InventoryAppliedAt).NotTo(BeNil())
			Expect(*repo.tasks["T1"].ApprovedBy).To(Equal(alice.ID))

			Expect(publisher.types()).To(ContainElements(
				events.EventTypeTaskStatusChanged,
				events.EventTypeTaskCompleted,
				events.EventTypePartStockAdjusted,
				events.EventTypePartLowStock,
			))

			result, err = move(root, task.StatusCompleted)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.PartUpdates).To(BeEmpty())
			Expect(repo.stock["P1"]).To(Equal(3))
			Expect(repo.stock["P2"]).To(Equal(0))
		})

		It("should skip parts missing from inventory", func() {
			repo.tasks["T1"].Status = string(task.StatusReadyForReview)
			delete(repo.stock, "P2")

			result, err := move(alice, task.StatusCompleted)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.SkippedParts).To(Equal([]string{"P2"}))
			Expect(repo.stock["P1"]).To(Equal(3))
		})

		It("should reject transitions from a read-only actor", func() {
			_, err := move(carol, task.StatusInProgress)
			Expect(err).To(Equal(task.ErrIllegalTransition))
			Expect(repo.tasks["T1"].Status).To(Equal(string(task.StatusPending)))
		})

		It("should reject unknown statuses", func() {
			_, err := move(root, task.Status("Paused"))
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeValidation))
		})

		It("should wrap store failures and leave stock untouched", func() {
			repo.tasks["T1"].Status = string(task.StatusReadyForReview)
			repo.shouldFail = true
			repo.failError = errors.New("tx aborted")

			_, err := move(alice, task.StatusCompleted)
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeStore))
			Expect(repo.stock["P1"]).To(Equal(8))
		})
	})

	Describe("Update and Delete", func() {
		BeforeEach(func() {
			seed("T1", task.StatusPending, taskDatamodel.TaskPart{TaskID: "T1", PartID: "P1", Quantity: 1})
		})

		It("should let the assigner edit details", func() {
			name := "Replace drive belt"
			t, err := service.Update(ctx, alice, "T1", task.UpdateTaskDTO{Name: &name})
			Expect(err).NotTo(HaveOccurred())
			Expect(t.Name).To(Equal(name))
			Expect(repo.tasks["T1"].Parts).To(HaveLen(1))
		})

		It("should refuse status changes through update", func() {
			status := task.StatusCompleted
			_, err := service.Update(ctx, alice, "T1", task.UpdateTaskDTO{Status: &status})
			Expect(err).To(HaveOccurred())
			Expect(repo.tasks["T1"].Status).To(Equal(string(task.StatusPending)))
		})

		It("should deny other managers", func() {
			name := "X"
			_, err := service.Update(ctx, dana, "T1", task.UpdateTaskDTO{Name: &name})
			Expect(err).To(Equal(internal.ErrAuthorizationDenied))
		})

		It("should lock parts once inventory is applied", func() {
			applied := time.Now()
			repo.tasks["T1"].InventoryAppliedAt = &applied

			_, err := service.Update(ctx, root, "T1", task.UpdateTaskDTO{Parts: []inventory.Consumption{{PartID: "P9", Quantity: 3}}})
			Expect(err).To(Equal(task.ErrPartsLocked))
		})

		It("should announce a reassignment", func() {
			to := carol.ID
			_, err := service.Update(ctx, alice, "T1", task.UpdateTaskDTO{AssignedTo: &to})
			Expect(err).NotTo(HaveOccurred())
			Expect(publisher.types()).To(ContainElement(events.EventTypeTaskAssigned))
		})

		It("should delete for the assigner", func() {
			Expect(service.Delete(ctx, alice, "T1")).To(Succeed())
			Expect(repo.tasks).NotTo(HaveKey("T1"))
		})

		It("should deny deletion to the assignee", func() {
			Expect(service.Delete(ctx, bob, "T1")).To(Equal(internal.ErrAuthorizationDenied))
		})
	})

	Describe("Rate", func() {
		rating := func(v int) task.RatingDTO { return task.RatingDTO{Rating: &v} }

		It("should only rate completed tasks", func() {
			seed("T1", task.StatusInProgress)
			_, err := service.Rate(ctx, alice, "T1", rating(4))
			Expect(err).To(Equal(task.ErrRatingNotAllowed))
		})

		It("should store a rating from the assigner", func() {
			seed("T1", task.StatusCompleted)
			t, err := service.Rate(ctx, alice, "T1", rating(4))
			Expect(err).NotTo(HaveOccurred())
			Expect(*t.Rating).To(Equal(4))
			Expect(*repo.tasks["T1"].Rating).To(Equal(4))
		})

		It("should reject out of range ratings", func() {
			seed("T1", task.StatusCompleted)
			_, err := service.Rate(ctx, alice, "T1", rating(6))
			Expect(err).To(HaveOccurred())
		})

		It("should deny the assignee", func() {
			seed("T1", task.StatusCompleted)
			_, err := service.Rate(ctx, bob, "T1", rating(5))
			Expect(err).To(Equal(internal.ErrAuthorizationDenied))
		})
	})

	Describe("History", func() {
		It("should reject open statuses as a filter", func() {
			_, err := service.History(ctx, root, task.HistoryFilter{Status: task.StatusPending})
			Expect(err).To(HaveOccurred())
		})

		It("should list closed tasks", func() {
			seed("T1", task.StatusCompleted)
			seed("T2", task.StatusPending)
			tasks, err := service.History(ctx, root, task.HistoryFilter{})
			Expect(err).NotTo(HaveOccurred())
			Expect(tasks).To(HaveLen(1))
			Expect(tasks[0].ID).To(Equal("T1"))
		})
	})
})

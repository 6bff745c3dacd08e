package task_test

import (
	"time"

	"github.com/frahmantamala/plant-maintenance/internal/auth"
	"github.com/frahmantamala/plant-maintenance/internal/task"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var (
	alice = &auth.Principal{ID: "alice", FullName: "Alice Manager", Role: auth.RoleManager}
	bob   = &auth.Principal{ID: "bob", FullName: "Bob Worker", Role: auth.RoleEmployee}
	carol = &auth.Principal{ID: "carol", FullName: "Carol Worker", Role: auth.RoleEmployee}
	dana  = &auth.Principal{ID: "dana", FullName: "Dana Manager", Role: auth.RoleManager}
	root  = &auth.Principal{ID: "root", FullName: "Plant Admin", Role: auth.RoleAdmin}
)

func newTask(status task.Status) *task.Task {
	return &task.Task{ID: "T1", Name: "Replace belt", AssignedBy: alice.ID, AssignedTo: bob.ID, Status: status}
}

var _ = Describe("Task lifecycle", func() {
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	Describe("AllowedTargets", func() {
		It("should offer every status to an admin", func() {
			Expect(task.AllowedTargets(root, newTask(task.StatusReadyForReview))).To(Equal([]task.Status{
				task.StatusPending, task.StatusInProgress, task.StatusReadyForReview, task.StatusCompleted, task.StatusCancelled,
			}))
		})

		It("should let the assigner approve or send back a task under review", func() {
			Expect(task.AllowedTargets(alice, newTask(task.StatusReadyForReview))).To(Equal([]task.Status{
				task.StatusReadyForReview, task.StatusCompleted, task.StatusInProgress,
			}))
		})

		It("should lock a completed task for the assigner", func() {
			Expect(task.AllowedTargets(alice, newTask(task.StatusCompleted))).To(Equal([]task.Status{task.StatusCompleted}))
		})

		It("should let the assignee start and submit", func() {
			Expect(task.AllowedTargets(bob, newTask(task.StatusPending))).To(Equal([]task.Status{task.StatusPending, task.StatusInProgress}))
			Expect(task.AllowedTargets(bob, newTask(task.StatusInProgress))).To(Equal([]task.Status{task.StatusInProgress, task.StatusReadyForReview}))
			Expect(task.AllowedTargets(bob, newTask(task.StatusReadyForReview))).To(Equal([]task.Status{task.StatusReadyForReview}))
		})

		It("should give an unrelated employee the current status only", func() {
			for _, s := range []task.Status{task.StatusPending, task.StatusInProgress, task.StatusReadyForReview} {
				Expect(task.AllowedTargets(carol, newTask(s))).To(Equal([]task.Status{s}))
			}
		})

		It("should give a manager who did not assign the task the current status only", func() {
			Expect(task.AllowedTargets(dana, newTask(task.StatusReadyForReview))).To(Equal([]task.Status{task.StatusReadyForReview}))
		})

		It("should treat an unknown role as read-only", func() {
			ghost := &auth.Principal{ID: "alice", Role: auth.Role("Contractor")}
			Expect(task.AllowedTargets(ghost, newTask(task.StatusPending))).To(Equal([]task.Status{task.StatusPending}))
		})
	})

	Describe("ApplyTransition", func() {
		It("should walk the example task to completion", func() {
			t := newTask(task.StatusPending)

			tr, err := t.ApplyTransition(bob, task.StatusInProgress, now)
			Expect(err).NotTo(HaveOccurred())
			Expect(tr.ApplyInventory).To(BeFalse())

			_, err = t.ApplyTransition(bob, task.StatusReadyForReview, now)
			Expect(err).NotTo(HaveOccurred())
			Expect(*t.CompletedBy).To(Equal(bob.ID))

			_, err = t.ApplyTransition(bob, task.StatusCompleted, now)
			Expect(err).To(Equal(task.ErrIllegalTransition))
			Expect(t.Status).To(Equal(task.StatusReadyForReview))

			tr, err = t.ApplyTransition(alice, task.StatusCompleted, now)
			Expect(err).NotTo(HaveOccurred())
			Expect(tr.ApplyInventory).To(BeTrue())
			Expect(*t.ApprovedBy).To(Equal(alice.ID))
			Expect(*t.CompletedBy).To(Equal(bob.ID))
			Expect(t.InventoryAppliedAt).NotTo(BeNil())
		})

		It("should not apply inventory twice when an admin re-saves a completed task", func() {
			t := newTask(task.StatusCompleted)
			applied := now.Add(-time.Hour)
			t.InventoryAppliedAt = &applied

			tr, err := t.ApplyTransition(root, task.StatusCompleted, now)
			Expect(err).NotTo(HaveOccurred())
			Expect(tr.ApplyInventory).To(BeFalse())
			Expect(*t.InventoryAppliedAt).To(Equal(applied))
		})

		It("should not apply inventory again after a reopen", func() {
			t := newTask(task.StatusReadyForReview)
			_, err := t.ApplyTransition(alice, task.StatusCompleted, now)
			Expect(err).NotTo(HaveOccurred())

			_, err = t.ApplyTransition(root, task.StatusInProgress, now)
			Expect(err).NotTo(HaveOccurred())

			tr, err := t.ApplyTransition(root, task.StatusCompleted, now.Add(time.Hour))
			Expect(err).NotTo(HaveOccurred())
			Expect(tr.ApplyInventory).To(BeFalse())
		})

		It("should reject invalid targets", func() {
			_, err := newTask(task.StatusPending).ApplyTransition(root, task.Status("Archived"), now)
			Expect(err).To(Equal(task.ErrIllegalTransition))
		})

		It("should reject a same-state save from a read-only actor", func() {
			_, err := newTask(task.StatusPending).ApplyTransition(carol, task.StatusPending, now)
			Expect(err).To(Equal(task.ErrIllegalTransition))
		})
	})

	Describe("CanApprove", func() {
		It("should admit only an admin or the assigning manager", func() {
			t := newTask(task.StatusReadyForReview)
			Expect(task.CanApprove(root, t)).To(BeTrue())
			Expect(task.CanApprove(alice, t)).To(BeTrue())
			Expect(task.CanApprove(dana, t)).To(BeFalse())
			Expect(task.CanApprove(bob, t)).To(BeFalse())
			Expect(task.CanApprove(nil, t)).To(BeFalse())
		})
	})

	Describe("Visibility", func() {
		all := []*task.Task{
			{ID: "1", AssignedBy: alice.ID, AssignedTo: bob.ID},
			{ID: "2", AssignedBy: dana.ID, AssignedTo: carol.ID},
			{ID: "3", AssignedBy: root.ID, AssignedTo: alice.ID},
		}

		ids := func(tasks []*task.Task) []string {
			out := []string{}
			for _, t := range tasks {
				out = append(out, t.ID)
			}
			return out
		}

		It("should return everything to an admin", func() {
			Expect(task.VisibleTasks(all, root)).To(HaveLen(len(all)))
		})

		It("should return assigned and received tasks to a manager", func() {
			Expect(ids(task.VisibleTasks(all, alice))).To(Equal([]string{"1", "3"}))
		})

		It("should return only received tasks to an employee", func() {
			Expect(ids(task.VisibleTasks(all, bob))).To(Equal([]string{"1"}))
		})

		It("should return nothing without a principal", func() {
			Expect(task.VisibleTasks(all, nil)).To(BeEmpty())
		})
	})

	Describe("History", func() {
		It("should keep closed tasks newest first", func() {
			older := now.Add(-48 * time.Hour)
			newer := now.Add(-time.Hour)
			tasks := []*task.Task{
				{ID: "open", Status: task.StatusInProgress, UpdatedAt: now},
				{ID: "old", Status: task.StatusCompleted, CompletedAt: &older},
				{ID: "cancelled", Status: task.StatusCancelled, UpdatedAt: now.Add(-2 * time.Hour)},
				{ID: "new", Status: task.StatusCompleted, CompletedAt: &newer},
			}

			out := task.History(tasks, task.HistoryFilter{})
			Expect(out).To(HaveLen(3))
			Expect(out[0].ID).To(Equal("new"))
			Expect(out[1].ID).To(Equal("cancelled"))
			Expect(out[2].ID).To(Equal("old"))

			Expect(task.History(tasks, task.HistoryFilter{Status: task.StatusCancelled})).To(HaveLen(1))
		})
	})

	Describe("ComputeStats", func() {
		It("should count overdue open tasks", func() {
			past := now.Add(-time.Hour)
			stats := task.ComputeStats([]*task.Task{
				{Status: task.StatusPending, DueDate: &past},
				{Status: task.StatusCompleted, DueDate: &past},
				{Status: task.StatusInProgress},
			}, now)

			Expect(stats.Total).To(Equal(3))
			Expect(stats.Overdue).To(Equal(1))
			Expect(stats.ByStatus[task.StatusReadyForReview]).To(Equal(0))
			Expect(stats.ByStatus[task.StatusPending]).To(Equal(1))
		})
	})
})

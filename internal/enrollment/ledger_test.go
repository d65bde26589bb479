package enrollment

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

var testBase = time.Date(2024, time.September, 1, 8, 0, 0, 0, time.UTC)

func newTestLedger(capacity int) *Ledger {
	counter := 0
	return NewLedger(Section{ID: "section-1", Capacity: capacity}, nil, func() string {
		counter++
		return fmt.Sprintf("enrollment-%d", counter)
	})
}

func TestLedger_RequestEnrollment_EnrollsUnderCapacity(t *testing.T) {
	t.Parallel()

	ledger := newTestLedger(2)

	record, err := ledger.RequestEnrollment("student-1", testBase)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record.Status != StatusEnrolled {
		t.Fatalf("expected enrolled, got %v", record.Status)
	}
	if record.SectionID != "section-1" || record.StudentID != "student-1" {
		t.Fatalf("unexpected record: %+v", record)
	}
}

func TestLedger_RequestEnrollment_WaitlistsAtCapacity(t *testing.T) {
	t.Parallel()

	ledger := newTestLedger(1)
	if _, err := ledger.RequestEnrollment("student-1", testBase); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	record, err := ledger.RequestEnrollment("student-2", testBase.Add(time.Minute))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record.Status != StatusWaitlisted {
		t.Fatalf("expected waitlisted, got %v", record.Status)
	}
}

func TestLedger_RequestEnrollment_RejectsDuplicateActive(t *testing.T) {
	t.Parallel()

	ledger := newTestLedger(1)
	if _, err := ledger.RequestEnrollment("student-1", testBase); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Both enrolled and waitlisted records block a second attempt.
	if _, err := ledger.RequestEnrollment("student-1", testBase.Add(time.Minute)); !errors.Is(err, ErrDuplicateActiveEnrollment) {
		t.Fatalf("expected ErrDuplicateActiveEnrollment, got %v", err)
	}

	if _, err := ledger.RequestEnrollment("student-2", testBase.Add(time.Minute)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := ledger.RequestEnrollment("student-2", testBase.Add(2*time.Minute)); !errors.Is(err, ErrDuplicateActiveEnrollment) {
		t.Fatalf("expected ErrDuplicateActiveEnrollment for waitlisted student, got %v", err)
	}
}

func TestLedger_RequestEnrollment_AllowsReenrollmentAfterCancellation(t *testing.T) {
	t.Parallel()

	ledger := newTestLedger(1)
	first, err := ledger.RequestEnrollment("student-1", testBase)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, _, err := ledger.Withdraw(first.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	second, err := ledger.RequestEnrollment("student-1", testBase.Add(time.Hour))
	if err != nil {
		t.Fatalf("expected fresh enrollment after cancellation, got %v", err)
	}
	if second.ID == first.ID {
		t.Fatal("expected a fresh record, not a reopened one")
	}
	if second.Status != StatusEnrolled {
		t.Fatalf("expected enrolled, got %v", second.Status)
	}
}

func TestLedger_Withdraw_PromotesInFIFOOrder(t *testing.T) {
	t.Parallel()

	ledger := newTestLedger(2)
	s1, _ := ledger.RequestEnrollment("student-1", testBase)
	if _, err := ledger.RequestEnrollment("student-2", testBase.Add(time.Minute)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s3, err := ledger.RequestEnrollment("student-3", testBase.Add(2*time.Minute))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s3.Status != StatusWaitlisted {
		t.Fatalf("expected student-3 waitlisted, got %v", s3.Status)
	}
	s4, err := ledger.RequestEnrollment("student-4", testBase.Add(3*time.Minute))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s4.Status != StatusWaitlisted {
		t.Fatalf("expected student-4 waitlisted, got %v", s4.Status)
	}

	cancelled, promoted, err := ledger.Withdraw(s1.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cancelled.Status != StatusCancelled {
		t.Fatalf("expected cancelled, got %v", cancelled.Status)
	}
	if len(promoted) != 1 || promoted[0].StudentID != "student-3" {
		t.Fatalf("expected student-3 promoted first, got %+v", promoted)
	}

	stats := ledger.Stats()
	if stats.EnrolledCount != 2 || stats.WaitlistedCount != 1 || stats.CancelledCount != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestLedger_Withdraw_WaitlistedSlotDoesNotPromote(t *testing.T) {
	t.Parallel()

	ledger := newTestLedger(1)
	if _, err := ledger.RequestEnrollment("student-1", testBase); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s2, _ := ledger.RequestEnrollment("student-2", testBase.Add(time.Minute))
	if _, err := ledger.RequestEnrollment("student-3", testBase.Add(2*time.Minute)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, promoted, err := ledger.Withdraw(s2.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(promoted) != 0 {
		t.Fatalf("withdrawing a waitlisted record must not promote, got %+v", promoted)
	}
}

func TestLedger_Withdraw_UnknownOrCancelledID(t *testing.T) {
	t.Parallel()

	ledger := newTestLedger(1)
	record, _ := ledger.RequestEnrollment("student-1", testBase)

	if _, _, err := ledger.Withdraw("missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if _, _, err := ledger.Withdraw(record.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, _, err := ledger.Withdraw(record.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for already cancelled record, got %v", err)
	}
}

func TestLedger_WithdrawScenario(t *testing.T) {
	t.Parallel()

	// Capacity 2: S1, S2 enroll; S3 waitlists; S1 withdraws; S3 promotes.
	ledger := newTestLedger(2)
	s1, _ := ledger.RequestEnrollment("S1", testBase)
	s2, _ := ledger.RequestEnrollment("S2", testBase.Add(time.Minute))
	s3, _ := ledger.RequestEnrollment("S3", testBase.Add(2*time.Minute))

	if s1.Status != StatusEnrolled || s2.Status != StatusEnrolled || s3.Status != StatusWaitlisted {
		t.Fatalf("unexpected initial statuses: %v %v %v", s1.Status, s2.Status, s3.Status)
	}

	_, promoted, err := ledger.Withdraw(s1.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(promoted) != 1 || promoted[0].StudentID != "S3" {
		t.Fatalf("expected S3 promoted, got %+v", promoted)
	}

	byStudent := make(map[string]Status)
	for _, record := range ledger.Records() {
		byStudent[record.StudentID] = record.Status
	}
	if byStudent["S1"] != StatusCancelled || byStudent["S2"] != StatusEnrolled || byStudent["S3"] != StatusEnrolled {
		t.Fatalf("unexpected final statuses: %+v", byStudent)
	}
	if stats := ledger.Stats(); stats.WaitlistedCount != 0 {
		t.Fatalf("expected empty waitlist, got %+v", stats)
	}
}

func TestLedger_PromoteFromWaitlist_IsIdempotent(t *testing.T) {
	t.Parallel()

	ledger := newTestLedger(1)
	if _, err := ledger.RequestEnrollment("student-1", testBase); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := ledger.RequestEnrollment("student-2", testBase.Add(time.Minute)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if promoted := ledger.PromoteFromWaitlist(); len(promoted) != 0 {
		t.Fatalf("expected no promotions at full capacity, got %+v", promoted)
	}

	// An external capacity increase promotes on the next speculative call.
	ledger.SetCapacity(3)
	promoted := ledger.PromoteFromWaitlist()
	if len(promoted) != 1 || promoted[0].StudentID != "student-2" {
		t.Fatalf("expected student-2 promoted, got %+v", promoted)
	}
	if promoted := ledger.PromoteFromWaitlist(); len(promoted) != 0 {
		t.Fatalf("expected repeat call to be a no-op, got %+v", promoted)
	}
}

func TestLedger_CapacityDecreaseNeverDemotes(t *testing.T) {
	t.Parallel()

	ledger := newTestLedger(2)
	if _, err := ledger.RequestEnrollment("student-1", testBase); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := ledger.RequestEnrollment("student-2", testBase.Add(time.Minute)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ledger.SetCapacity(1)

	stats := ledger.Stats()
	if stats.EnrolledCount != 2 {
		t.Fatalf("expected over-capacity enrollment preserved, got %+v", stats)
	}
	if stats.AvailableSlots != 0 {
		t.Fatalf("expected no available slots, got %d", stats.AvailableSlots)
	}
	if stats.UtilizationRate != 2.0 {
		t.Fatalf("expected utilization 2.0, got %v", stats.UtilizationRate)
	}
}

func TestLedger_Stats_ZeroCapacity(t *testing.T) {
	t.Parallel()

	ledger := newTestLedger(0)
	record, err := ledger.RequestEnrollment("student-1", testBase)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record.Status != StatusWaitlisted {
		t.Fatalf("expected waitlisted on zero capacity section, got %v", record.Status)
	}

	stats := ledger.Stats()
	if stats.UtilizationRate != 0 {
		t.Fatalf("expected 0 utilization for zero capacity, got %v", stats.UtilizationRate)
	}
	if stats.AvailableSlots != 0 {
		t.Fatalf("expected 0 available slots, got %d", stats.AvailableSlots)
	}
}

func TestLedger_CapacityInvariantUnderConcurrentRequests(t *testing.T) {
	t.Parallel()

	const capacity = 5
	const students = 40
	ledger := newTestLedger(capacity)

	var wg sync.WaitGroup
	for i := 0; i < students; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			studentID := fmt.Sprintf("student-%02d", i)
			if _, err := ledger.RequestEnrollment(studentID, testBase.Add(time.Duration(i)*time.Second)); err != nil {
				t.Errorf("unexpected error for %s: %v", studentID, err)
			}
		}(i)
	}
	wg.Wait()

	stats := ledger.Stats()
	if stats.EnrolledCount != capacity {
		t.Fatalf("expected %d enrolled, got %d", capacity, stats.EnrolledCount)
	}
	if stats.WaitlistedCount != students-capacity {
		t.Fatalf("expected %d waitlisted, got %d", students-capacity, stats.WaitlistedCount)
	}
}

func TestLedger_CapacityInvariantUnderMixedOperations(t *testing.T) {
	t.Parallel()

	ledger := newTestLedger(3)
	var active []string

	check := func(step string) {
		stats := ledger.Stats()
		if stats.EnrolledCount > 3 {
			t.Fatalf("%s: capacity invariant violated: %+v", step, stats)
		}
	}

	for i := 0; i < 10; i++ {
		record, err := ledger.RequestEnrollment(fmt.Sprintf("student-%d", i), testBase.Add(time.Duration(i)*time.Minute))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		active = append(active, record.ID)
		check("request")
	}
	for _, id := range active[:6] {
		if _, _, err := ledger.Withdraw(id); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		check("withdraw")
	}
}

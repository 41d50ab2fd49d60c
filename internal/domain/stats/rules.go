package stats

import "time"

const (
	PointsEventCreated = 5
	PointsMatched      = 10
	PointsCompleted    = 20

	// Three distinct reporters inside the window suspend the account.
	ReportThreshold    = 3
	ReportWindow       = 30 * 24 * time.Hour
	SuspensionDuration = 7 * 24 * time.Hour
)

var (
	StreakMilestones = []int{3, 5, 7, 10, 30, 50, 100}
	EventMilestones  = []int{1, 5, 10, 25, 50, 100}
	PointMilestones  = []int{100, 500, 1000, 2500, 5000, 10000}
)

// meetupDay truncates t to its UTC calendar day.
func meetupDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// NextStreak applies the day-delta rule: consecutive days extend the
// streak, a gap restarts it at 1, a first meetup starts it at 1 and a second
// meetup on the same day leaves it unchanged.
func NextStreak(current int, lastMeetup *time.Time, at time.Time) int {
	if lastMeetup == nil || current <= 0 {
		return 1
	}

	delta := int(meetupDay(at).Sub(meetupDay(*lastMeetup)).Hours() / 24)
	switch {
	case delta == 0:
		return current
	case delta == 1:
		return current + 1
	case delta > 1:
		return 1
	default:
		// Completions processed out of order never shorten a streak.
		return current
	}
}

// applyCompletion records a completed meetup on s.
func applyCompletion(s *UserStats, at time.Time) {
	day := meetupDay(at)
	next := NextStreak(s.CurrentStreak, s.LastMeetupDate, at)

	s.CurrentStreak = next
	if next > s.LongestStreak {
		s.LongestStreak = next
	}
	if s.LastMeetupDate == nil || day.After(*s.LastMeetupDate) {
		s.LastMeetupDate = &day
	}
	s.EventsCompleted++
	s.TotalPoints += PointsCompleted
}

// crossed returns the thresholds t with before < t <= after.
func crossed(thresholds []int, before, after int) []int {
	var out []int
	for _, t := range thresholds {
		if before < t && t <= after {
			out = append(out, t)
		}
	}
	return out
}

type milestoneHit struct {
	Kind      MilestoneKind
	Threshold int
}

// milestonesBetween lists every threshold crossed going from before to after.
func milestonesBetween(before, after UserStats) []milestoneHit {
	var hits []milestoneHit
	for _, t := range crossed(StreakMilestones, before.CurrentStreak, after.CurrentStreak) {
		hits = append(hits, milestoneHit{MilestoneStreak, t})
	}
	for _, t := range crossed(EventMilestones, before.EventsCompleted, after.EventsCompleted) {
		hits = append(hits, milestoneHit{MilestoneEventsCompleted, t})
	}
	for _, t := range crossed(PointMilestones, before.TotalPoints, after.TotalPoints) {
		hits = append(hits, milestoneHit{MilestoneTotalPoints, t})
	}
	return hits
}

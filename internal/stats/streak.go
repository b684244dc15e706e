package stats

import (
	"slices"
)

// uniqueDescending drops invalid days and duplicates, newest first.
func uniqueDescending(days []Day) []Day {
	out := make([]Day, 0, len(days))
	for _, d := range days {
		if d.Valid() {
			out = append(out, d)
		}
	}

	slices.Sort(out)
	out = slices.Compact(out)
	slices.Reverse(out)
	return out
}

// ComputeStreak counts consecutive active days ending today or yesterday.
// The walk starts at today and stops at the first gap, so a future-dated
// day also ends it.
func ComputeStreak(days []Day, today Day) int {
	streak := 0
	cursor := today

	for _, d := range uniqueDescending(days) {
		diff := cursor - d
		if diff != 0 && diff != 1 {
			break
		}
		streak++
		cursor = d
	}

	return streak
}

// LongestStreak is the longest run of consecutive days anywhere in days.
func LongestStreak(days []Day) int {
	uniq := uniqueDescending(days)
	if len(uniq) == 0 {
		return 0
	}

	longest, run := 1, 1
	for i := 1; i < len(uniq); i++ {
		if uniq[i-1]-uniq[i] == 1 {
			run++
		} else {
			run = 1
		}
		longest = max(longest, run)
	}

	return longest
}

func (c *Calendar) Streak(dates []string) int {
	return ComputeStreak(c.ParseAll(dates), c.Today())
}

package engine

import "math"

// MaxLevel caps skill progression. XP keeps accumulating past the level
// threshold; only the level stops.
const MaxLevel = 99

// xpTable[L] is the total XP required to be level L. Built once at init so
// all later lookups are pure integer comparisons; the only floating point
// is 2^(l/7) over l <= 98, far below any precision loss.
//
// Curve: points(l) = floor(l + 300 * 2^(l/7)), xp(L) = floor(sum/4).
// Boundaries: xpTable[2]=83, [10]=1154, [50]=101333, [99]=13034431.
var xpTable [MaxLevel + 1]int

func init() {
	points := 0
	for l := 1; l < MaxLevel; l++ {
		points += int(math.Floor(float64(l) + 300*math.Pow(2, float64(l)/7)))
		xpTable[l+1] = points / 4
	}
	// Level 1 requires 0 XP; the table's zero values cover levels 0 and 1.
}

// XPForLevel returns the total XP threshold required to be at the given
// level. Levels at or below 1 require 0 XP; levels above 99 are treated
// as 99.
func XPForLevel(level int) int {
	if level <= 1 {
		return 0
	}
	if level > MaxLevel {
		level = MaxLevel
	}
	return xpTable[level]
}

// LevelForXP returns the highest level L (1..99) such that
// xp >= XPForLevel(L).
func LevelForXP(xp int) int {
	if xp <= 0 {
		return 1
	}
	low, high := 1, MaxLevel
	for low < high {
		mid := (low + high + 1) / 2
		if xpTable[mid] <= xp {
			low = mid
		} else {
			high = mid - 1
		}
	}
	return low
}

// ProgressToNext returns the fraction [0,1] of the way from the current
// level threshold to the next. At level 99 it is always 1.
func ProgressToNext(xp int) float64 {
	level := LevelForXP(xp)
	if level >= MaxLevel {
		return 1
	}
	cur := XPForLevel(level)
	next := XPForLevel(level + 1)
	return float64(xp-cur) / float64(next-cur)
}

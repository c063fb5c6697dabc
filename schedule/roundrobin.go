package schedule

import "errors"

var ErrNotEnoughTeams = errors.New("at least 2 teams are required for a round-robin")

// byeTeamID pads an odd field so the circle method works on an even ring.
// Pairings involving it are dropped, never emitted.
const byeTeamID = -1

// Pairing is one fixture of a round-robin. Rounds are 1-based; within a
// round no team appears twice.
type Pairing struct {
	Round int
	TeamA int
	TeamB int
}

// RoundRobinPairings produces every unique pairing of the given teams exactly
// once using the circle method: position 0 stays fixed while the remaining
// positions rotate by one step after every round, and within a round position
// i is paired with position n-1-i. The emitted order (round, then slot within
// the round) is deterministic; the date allocator relies on it positionally.
func RoundRobinPairings(teamIDs []int) ([]Pairing, error) {
	if len(teamIDs) < 2 {
		return nil, ErrNotEnoughTeams
	}

	ring := make([]int, len(teamIDs))
	copy(ring, teamIDs)
	if len(ring)%2 != 0 {
		ring = append(ring, byeTeamID)
	}
	n := len(ring)

	pairings := make([]Pairing, 0, len(teamIDs)*(len(teamIDs)-1)/2)
	for round := 1; round < n; round++ {
		for i := 0; i < n/2; i++ {
			a, b := ring[i], ring[n-1-i]
			if a == byeTeamID || b == byeTeamID {
				continue
			}
			pairings = append(pairings, Pairing{Round: round, TeamA: a, TeamB: b})
		}
		// Rotate all positions except 0: the element falling off the end
		// is reinserted right after the fixed position.
		last := ring[n-1]
		copy(ring[2:], ring[1:n-1])
		ring[1] = last
	}
	return pairings, nil
}

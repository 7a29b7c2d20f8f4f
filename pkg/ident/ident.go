package ident

import "errors"

const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// Capacity is the number of identifiers the allocator can hand out:
// 26 single letters followed by 676 two-letter combinations.
const Capacity = len(alphabet) + len(alphabet)*len(alphabet)

// ErrAllocationExhausted is returned when every one- and two-letter id is in use
var ErrAllocationExhausted = errors.New("node identifier space exhausted")

// Next returns the first unused identifier given the ids currently in use.
// Single letters A..Z come first, then AA, AB, ... AZ, BA, ... ZZ.
func Next(existing []string) (string, error) {
	used := make(map[string]bool, len(existing))
	for _, id := range existing {
		used[id] = true
	}

	for i := 0; i < len(alphabet); i++ {
		id := alphabet[i : i+1]
		if !used[id] {
			return id, nil
		}
	}

	for i := 0; i < len(alphabet); i++ {
		for j := 0; j < len(alphabet); j++ {
			id := string([]byte{alphabet[i], alphabet[j]})
			if !used[id] {
				return id, nil
			}
		}
	}

	return "", ErrAllocationExhausted
}

package perceptual

import (
	"sort"

	"winnow/internal/dupe"
)

// Distance sums the pairwise Hamming distances across aligned tuple
// positions. Tuples of different lengths (or incompatible hash kinds)
// are incomparable and report no match.
func Distance(a, b Fingerprint) (int, bool) {
	if len(a.Hashes) == 0 || len(a.Hashes) != len(b.Hashes) {
		return 0, false
	}
	total := 0
	for i := range a.Hashes {
		d, err := a.Hashes[i].Distance(b.Hashes[i])
		if err != nil {
			return 0, false
		}
		total += d
	}
	return total, true
}

// Cluster groups fingerprints whose summed distance stays within
// threshold. The sweep is greedy single-link: files are sorted by path,
// then each unvisited file seeds a group and every later unvisited file
// joins if it is within threshold of ANY current member. Membership is
// therefore not a mutual-similarity guarantee; a chain A~B~C lands in
// one group even when A and C are far apart.
func Cluster(fingerprints []Fingerprint, threshold int) []dupe.Group {
	if threshold < 0 {
		threshold = 0
	}
	sorted := append([]Fingerprint(nil), fingerprints...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Record.Path < sorted[j].Record.Path
	})

	visited := make([]bool, len(sorted))
	var groups []dupe.Group
	for i := range sorted {
		if visited[i] {
			continue
		}
		visited[i] = true
		members := []int{i}
		for j := i + 1; j < len(sorted); j++ {
			if visited[j] {
				continue
			}
			for _, m := range members {
				d, ok := Distance(sorted[m], sorted[j])
				if ok && d <= threshold {
					visited[j] = true
					members = append(members, j)
					break
				}
			}
		}
		if len(members) < 2 {
			continue
		}

		files := make([]dupe.FileRecord, 0, len(members))
		for _, m := range members {
			files = append(files, sorted[m].Record)
		}
		sort.Slice(files, func(a, b int) bool {
			if !files[a].Created.Equal(files[b].Created) {
				return files[a].Created.Before(files[b].Created)
			}
			return files[a].Path < files[b].Path
		})
		groups = append(groups, dupe.Group{Files: files})
	}
	return groups
}

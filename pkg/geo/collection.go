package geo

// Center returns the midpoint of the bounding box of records, or (0, 0) when
// there are none
func Center(records []Record) (lat, long float64) {
	south, west, north, east, ok := Bounds(records)
	if !ok {
		return 0, 0
	}
	return (south + north) / 2, (west + east) / 2
}

// Distinct keeps each record that is not within threshold of an already kept
// record. Because proximity is not transitive the result depends on input
// order; the first record of a cluster wins.
func Distinct(records []Record, threshold float64) []Record {
	kept := make([]Record, 0, len(records))
	for _, r := range records {
		duplicate := false
		for _, k := range kept {
			if r.Equals(k, threshold) {
				duplicate = true
				break
			}
		}
		if !duplicate {
			kept = append(kept, r)
		}
	}
	return kept
}

// Bounds returns the south-west and north-east corners of records.
// ok is false for an empty collection.
func Bounds(records []Record) (south, west, north, east float64, ok bool) {
	if len(records) == 0 {
		return 0, 0, 0, 0, false
	}
	south, north = records[0].lat, records[0].lat
	west, east = records[0].long, records[0].long
	for _, r := range records[1:] {
		south = min(south, r.lat)
		north = max(north, r.lat)
		west = min(west, r.long)
		east = max(east, r.long)
	}
	return south, west, north, east, true
}

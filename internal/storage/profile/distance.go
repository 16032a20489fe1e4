package profile

// Distance returns the out-of-place distance of query from subject.
//
// Every query record contributes subjectRank-queryRank when the kmer is in
// the subject, or subject.Len()+1 when it is not. Signed contributions are
// summed and the absolute value is taken once on the total.
func Distance(query, subject Profile) int64 {
	missing := int64(subject.Len() + 1)

	var total int64
	for _, q := range query.ranked {
		if s, ok := subject.Get(q.Kmer); ok {
			total += int64(s.Rank - q.Rank)
		} else {
			total += missing
		}
	}

	if total < 0 {
		return -total
	}
	return total
}

package sanitizer

// Summarize reduces a manifest to aggregate counts. Pending (nil) slots are
// ignored. SizeReduction is zero when nothing was received.
func Summarize(m Manifest) Summary {
	var (
		sum            Summary
		original, proc int64
	)
	for _, r := range m {
		if r == nil {
			continue
		}
		sum.TotalFiles++
		if r.MetadataStripped {
			sum.MetadataStripped++
		}
		if r.NoiseAdded {
			sum.NoiseAdded++
		}
		if !r.Failed() {
			sum.Processed++
		}
		original += r.OriginalSize
		proc += r.ProcessedSize
	}
	if original > 0 {
		sum.SizeReduction = float64(original-proc) / float64(original) * 100
	}
	return sum
}

// Package checksum computes content fingerprints for load sources.
//
// Every load records the SHA-256 digest of the exact file bytes alongside
// the outcome, so a run can later be matched to the input it consumed. The
// digest covers raw bytes, not parsed rows: a file that changes only in
// quoting or encoding fingerprints differently even when it parses to
// identical rows.
//
// # Example Usage
//
//	calc := checksum.New()
//	digest, err := calc.Calculate(file)
//
// # Thread Safety
//
// SHA256 is safe for concurrent use by multiple goroutines.
package checksum

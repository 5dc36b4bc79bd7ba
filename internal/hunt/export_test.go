package hunt

// WithQRIDs replaces the QR id generator used for clue assignments.
func (e *Engine) WithQRIDs(fn func(roundNumber int) string) *Engine {
	e.qrID = fn
	return e
}

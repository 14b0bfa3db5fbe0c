package utils

// Ptr returns a pointer to a copy of v. Adapters use it to fill optional wire
// fields from literals:
//
//	request.Temperature = utils.Ptr(0.2)
func Ptr[T any](v T) *T {
	return &v
}

package firebase

import (
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// IsNotFound reports whether a Firestore call failed because the document is absent.
func IsNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

// IsAlreadyExists reports whether a Firestore Create lost to an existing document.
func IsAlreadyExists(err error) bool {
	return status.Code(err) == codes.AlreadyExists
}

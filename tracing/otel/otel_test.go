package otel_test

import (
	"testing"

	"github.com/graph-gophers/loadframe"
	"github.com/graph-gophers/loadframe/tracing/otel"
)

func TestInterfaceImplementation(t *testing.T) {
	type User struct {
		ID        uint
		FirstName string
		LastName  string
		Email     string
	}
	var _ loadframe.Tracer[string, int] = otel.Tracer[string, int]{}
	var _ loadframe.Tracer[string, string] = otel.Tracer[string, string]{}
	var _ loadframe.Tracer[uint, User] = otel.Tracer[uint, User]{}
	// check compatibility with loader options
	loadframe.WithTracer[uint, User, struct{}](otel.Tracer[uint, User]{})
}

package opentracing_test

import (
	"testing"

	"github.com/graph-gophers/loadframe"
	"github.com/graph-gophers/loadframe/tracing/opentracing"
)

func TestInterfaceImplementation(t *testing.T) {
	type User struct {
		ID        uint
		FirstName string
		LastName  string
		Email     string
	}
	var _ loadframe.Tracer[string, int] = opentracing.Tracer[string, int]{}
	var _ loadframe.Tracer[string, string] = opentracing.Tracer[string, string]{}
	var _ loadframe.Tracer[uint, User] = opentracing.Tracer[uint, User]{}
	// check compatibility with loader options
	loadframe.WithTracer[uint, User, struct{}](opentracing.Tracer[uint, User]{})
}

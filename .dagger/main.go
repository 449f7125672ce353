// Papers CI/CD
//
// Package main provides reproducible builds and tests locally and in GitHub actions.
package main

import (
	"context"

	"dagger/papers/internal/dagger"
)

// Papers is the main module for the papers CI/CD pipeline
type Papers struct {
	// Project source directory
	//
	// +private
	Source *dagger.Directory
}

// New creates a new Papers CI/CD module instance
func New(
	// Project source directory.
	//
	// +defaultPath="/"
	// +ignore=[".git", ".direnv", ".papers", "build", "tmp", "_examples"]
	source *dagger.Directory,
) *Papers {
	return &Papers{
		Source: source,
	}
}

// goContainer returns a Debian Bookworm-based Go container with gcc,
// libsqlite3-dev, CGO enabled, and the project source mounted. sqlite3 and
// sqlite-vec are cgo packages, so every build and test runs here.
func (p *Papers) goContainer(platform dagger.Platform) *dagger.Container {
	return dag.Container(dagger.ContainerOpts{Platform: platform}).
		From("golang:1.25-bookworm").
		WithExec([]string{"apt-get", "update"}).
		WithExec([]string{"apt-get", "install", "-y", "gcc", "libsqlite3-dev"}).
		WithEnvVariable("CGO_ENABLED", "1").
		WithEnvVariable("PATH", "/go/bin:$PATH", dagger.ContainerWithEnvVariableOpts{Expand: true}).
		WithMountedCache("/go/pkg/mod", dag.CacheVolume("go-mod")).
		WithMountedCache("/root/.cache/go-build", dag.CacheVolume("go-build-"+string(platform))).
		WithWorkdir("/src").
		WithDirectory("/src", p.Source)
}

// Test runs the unit tests via "go test"
func (p *Papers) Test(ctx context.Context) (string, error) {
	return p.goContainer("").
		WithExec([]string{"go", "test", "-v", "./..."}).
		Stdout(ctx)
}

// Vet runs "go vet" over the module
//
// +check
func (p *Papers) Vet(ctx context.Context) (string, error) {
	return p.goContainer("").
		WithExec([]string{"go", "vet", "./..."}).
		Stdout(ctx)
}

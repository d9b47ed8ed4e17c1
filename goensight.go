// Package goensight reads, edits, queries and writes EnSight Gold
// unstructured meshes. The heavy lifting lives in the mesh, readers and
// writers packages, this package is the short way in.
package goensight

import (
	"github.com/notargets/goensight/mesh"
	"github.com/notargets/goensight/readers"
	"github.com/notargets/goensight/writers"
)

// NewMesh returns an empty static mesh in edit mode
func NewMesh() *mesh.Object { return mesh.NewObject() }

// ReadMesh reads every time step of the case file at path
func ReadMesh(path string) (*mesh.Object, error) { return readers.Read(path) }

// ReadMeshStep reads one time step of the case file at path as a static mesh
func ReadMeshStep(path string, step int) (*mesh.Object, error) {
	return readers.ReadStep(path, step)
}

// WriteMesh writes m as case file path plus data files next to it. A
// negative step writes all steps.
func WriteMesh(m *mesh.Object, path string, binary bool, step int) error {
	if step < 0 {
		step = -1
	}
	return writers.Write(m, path, binary, step)
}

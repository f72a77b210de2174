package model

import (
	"fmt"

	"github.com/qmuntal/gltf"
)

// Default mesh names on Ready Player Me exports.
const (
	DefaultHeadMesh  = "Wolf3D_Head"
	DefaultTeethMesh = "Wolf3D_Teeth"
)

// Avatar holds the two morph-animated meshes driven during speech.
type Avatar struct {
	Head  *MorphMesh
	Teeth *MorphMesh
}

// LoadAvatar opens a glTF/GLB file and extracts morph target dictionaries for
// the head and teeth meshes.
func LoadAvatar(path, headName, teethName string) (*Avatar, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open gltf: %w", err)
	}
	return AvatarFromDocument(doc, headName, teethName)
}

// AvatarFromDocument builds the avatar meshes from an already-parsed
// document. Split from LoadAvatar so tests can feed synthetic documents.
func AvatarFromDocument(doc *gltf.Document, headName, teethName string) (*Avatar, error) {
	head, err := morphMeshFromDoc(doc, headName)
	if err != nil {
		return nil, err
	}

	// Teeth are optional; some exports only animate the head.
	teeth, err := morphMeshFromDoc(doc, teethName)
	if err != nil {
		teeth = nil
	}

	return &Avatar{Head: head, Teeth: teeth}, nil
}

func morphMeshFromDoc(doc *gltf.Document, name string) (*MorphMesh, error) {
	for _, mesh := range doc.Meshes {
		if mesh.Name != name {
			continue
		}
		names := targetNames(mesh)
		if len(names) == 0 {
			return nil, fmt.Errorf("mesh %q has no morph targets", name)
		}
		return NewMorphMesh(name, names), nil
	}
	return nil, fmt.Errorf("mesh %q not found", name)
}

// targetNames reads the morph target names from mesh.extras.targetNames, the
// convention glTF exporters use since targets themselves are unnamed. Falls
// back to positional names when the extras are missing.
func targetNames(mesh *gltf.Mesh) []string {
	count := 0
	if len(mesh.Primitives) > 0 {
		count = len(mesh.Primitives[0].Targets)
	}
	if count == 0 {
		return nil
	}

	if extras, ok := mesh.Extras.(map[string]interface{}); ok {
		if raw, ok := extras["targetNames"].([]interface{}); ok && len(raw) == count {
			names := make([]string, 0, count)
			for _, v := range raw {
				s, ok := v.(string)
				if !ok {
					break
				}
				names = append(names, s)
			}
			if len(names) == count {
				return names
			}
		}
	}

	names := make([]string, count)
	for i := range names {
		names[i] = fmt.Sprintf("morphTarget%d", i)
	}
	return names
}

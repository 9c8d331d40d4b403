package descriptor

import (
	"os"

	"gopkg.in/yaml.v3"

	errs "pokewatch/stockworker/pkg/errors"
)

// descriptorFile is the on-disk shape of a seller descriptor file.
type descriptorFile struct {
	Sellers []StoreDescriptor `yaml:"sellers"`
}

// LoadFile reads seller descriptors from a YAML file and registers each one.
// Descriptors in the file override builtin descriptors with the same seller
// ID. It returns the number of descriptors registered.
func LoadFile(path string, r *Registry) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, errs.NewConfiguration("reading descriptor file "+path, err)
	}

	var f descriptorFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return 0, errs.NewConfiguration("parsing descriptor file "+path, err)
	}

	for _, d := range f.Sellers {
		if err := r.Register(d); err != nil {
			return 0, errs.NewConfiguration("registering descriptor from "+path, err)
		}
	}
	return len(f.Sellers), nil
}

package forcing

import (
	"encoding/gob"
	"fmt"
	"os"
)

// SaveGob caches the block to a binary snapshot
func (bc *BC) SaveGob(fp string) error {
	f, err := os.Create(fp)
	if err != nil {
		return fmt.Errorf(" forcing.SaveGob %v", err)
	}
	if err := gob.NewEncoder(f).Encode(bc); err != nil {
		return fmt.Errorf(" forcing.SaveGob %v", err)
	}
	f.Close()
	return nil
}

// LoadGobBC recovers a cached block
func LoadGobBC(fp string) (*BC, error) {
	var bc BC
	f, err := os.Open(fp)
	if err != nil {
		return nil, err
	}
	enc := gob.NewDecoder(f)
	err = enc.Decode(&bc)
	if err != nil {
		return nil, err
	}
	f.Close()
	return &bc, nil
}

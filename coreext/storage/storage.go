// Package storage saves and restores construct definitions in a bbolt
// database, and installs the bsave and bload commands.
//
// A saved file holds a meta bucket recording the engine version, a modules
// bucket, and one bucket per construct kind. Keys are zero-padded sequence
// numbers so that cursors return definitions in their original order, and
// values are construct images.
package storage

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/zephyrtronium/clips/internal"
	bolt "go.etcd.io/bbolt"
	"gopkg.in/yaml.v2"
)

var (
	metaBucket    = []byte("meta")
	modulesBucket = []byte("modules")
	versionKey    = []byte("version")
)

// ErrVersion is returned when loading a file saved by a different engine
// version.
var ErrVersion = errors.New("incompatible saved constructs")

func init() {
	internal.Register(initStorage)
}

func initStorage(env *internal.Environment) {
	env.Define("bsave", internal.ReturnBool, 1, 1, func(env *internal.Environment) bool {
		return command(env, "bsave", Bsave)
	})
	env.Define("bload", internal.ReturnBool, 1, 1, func(env *internal.Environment) bool {
		return command(env, "bload", Bload)
	})
}

func command(env *internal.Environment, name string, f func(*internal.Environment, string) error) bool {
	path, ok := env.LexemeArgAt(name, 0)
	if !ok {
		return false
	}
	if err := f(env, path); err != nil {
		env.PrintErrorID("BSAVE", 1, false)
		env.PrintRouter(internal.WError, "Function "+name+" failed: "+err.Error()+".\n")
		return false
	}
	return true
}

func open(path string) (*bolt.DB, error) {
	opts := &bolt.Options{
		Timeout: time.Second,
	}
	db, err := bolt.Open(path, 0644, opts)
	return db, errors.Wrapf(err, "opening %s", path)
}

func seqKey(i int) []byte {
	return []byte(fmt.Sprintf("%08d", i))
}

// Bsave writes every module and construct of env to the database at path,
// replacing anything saved there before.
func Bsave(env *internal.Environment, path string) error {
	db, err := open(path)
	if err != nil {
		return err
	}
	defer db.Close()
	return db.Update(func(tx *bolt.Tx) error {
		// Start from empty buckets.
		err := tx.ForEach(func(name []byte, _ *bolt.Bucket) error {
			return tx.DeleteBucket(name)
		})
		if err != nil {
			return err
		}
		meta, err := tx.CreateBucket(metaBucket)
		if err != nil {
			return err
		}
		if err := meta.Put(versionKey, []byte(internal.Version)); err != nil {
			return err
		}
		mods, err := tx.CreateBucket(modulesBucket)
		if err != nil {
			return err
		}
		for i, m := range env.Modules() {
			if err := mods.Put(seqKey(i), []byte(m.Name())); err != nil {
				return err
			}
		}
		for _, k := range env.ConstructKinds() {
			b, err := tx.CreateBucket([]byte(k.Name()))
			if err != nil {
				return err
			}
			i := 0
			for _, m := range env.Modules() {
				for _, c := range k.Items(env, m) {
					img, err := c.Image()
					if err != nil {
						return errors.Wrapf(err, "saving %s %s", k.Name(), c.Name())
					}
					if err := b.Put(seqKey(i), img); err != nil {
						return err
					}
					i++
				}
			}
		}
		return nil
	})
}

// Bload clears env and defines the modules and constructs saved at path.
func Bload(env *internal.Environment, path string) error {
	db, err := open(path)
	if err != nil {
		return err
	}
	defer db.Close()
	var (
		doc    internal.Document
		others = make(map[string][][]byte)
	)
	err = db.View(func(tx *bolt.Tx) error {
		meta := tx.Bucket(metaBucket)
		if meta == nil {
			return errors.Wrap(ErrVersion, "no version recorded")
		}
		if v := string(meta.Get(versionKey)); v != internal.Version {
			return errors.Wrapf(ErrVersion, "saved by version %q", v)
		}
		if mods := tx.Bucket(modulesBucket); mods != nil {
			err := mods.ForEach(func(_, v []byte) error {
				doc.Modules = append(doc.Modules, string(v))
				return nil
			})
			if err != nil {
				return err
			}
		}
		for _, k := range env.ConstructKinds() {
			b := tx.Bucket([]byte(k.Name()))
			if b == nil {
				continue
			}
			err := b.ForEach(func(_, v []byte) error {
				switch k.Name() {
				case "deffunction":
					var d internal.DeffunctionDef
					if err := yaml.UnmarshalStrict(v, &d); err != nil {
						return err
					}
					doc.Deffunctions = append(doc.Deffunctions, d)
				case "defgeneric":
					var d internal.DefgenericDef
					if err := yaml.UnmarshalStrict(v, &d); err != nil {
						return err
					}
					doc.Defgenerics = append(doc.Defgenerics, d)
				default:
					// Values are only valid during the transaction.
					others[k.Name()] = append(others[k.Name()], append([]byte(nil), v...))
				}
				return nil
			})
			if err != nil {
				return errors.Wrapf(err, "reading %s", k.Name())
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	if !env.Clear() {
		return errors.New("constructs are in use")
	}
	src, err := yaml.Marshal(&doc)
	if err != nil {
		return err
	}
	if _, err := env.LoadImage(src); err != nil {
		return errors.Wrapf(err, "loading %s", path)
	}
	for _, k := range env.ConstructKinds() {
		for _, img := range others[k.Name()] {
			if err := k.Parse(env, img); err != nil {
				return errors.Wrapf(err, "loading %s", k.Name())
			}
		}
	}
	return nil
}

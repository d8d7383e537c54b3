package storage

import (
	"bytes"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
)

// testDB runs the shared test suite against a DB implementation.
func testDB(t *testing.T, db DB) {
	t.Helper()

	t.Run("PutAndGet", func(t *testing.T) {
		if err := db.Put([]byte("key1"), []byte("value1")); err != nil {
			t.Fatalf("Put() error: %v", err)
		}
		val, err := db.Get([]byte("key1"))
		if err != nil {
			t.Fatalf("Get() error: %v", err)
		}
		if !bytes.Equal(val, []byte("value1")) {
			t.Errorf("Get() = %q, want %q", val, "value1")
		}
	})

	t.Run("GetNonexistent", func(t *testing.T) {
		_, err := db.Get([]byte("nonexistent"))
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("Get() for missing key = %v, want ErrNotFound", err)
		}
	})

	t.Run("Has", func(t *testing.T) {
		db.Put([]byte("exists"), []byte("yes"))
		ok, err := db.Has([]byte("exists"))
		if err != nil || !ok {
			t.Errorf("Has(exists) = %v, %v", ok, err)
		}
		ok, err = db.Has([]byte("missing"))
		if err != nil || ok {
			t.Errorf("Has(missing) = %v, %v", ok, err)
		}
	})

	t.Run("Overwrite", func(t *testing.T) {
		db.Put([]byte("ow"), []byte("first"))
		db.Put([]byte("ow"), []byte("second"))
		val, err := db.Get([]byte("ow"))
		if err != nil {
			t.Fatalf("Get() error: %v", err)
		}
		if !bytes.Equal(val, []byte("second")) {
			t.Errorf("Get() after overwrite = %q, want %q", val, "second")
		}
	})

	t.Run("Delete", func(t *testing.T) {
		db.Put([]byte("del"), []byte("value"))
		if err := db.Delete([]byte("del")); err != nil {
			t.Fatalf("Delete() error: %v", err)
		}
		if ok, _ := db.Has([]byte("del")); ok {
			t.Error("key should be gone after Delete()")
		}
		// Deleting a nonexistent key should not error.
		if err := db.Delete([]byte("never-existed")); err != nil {
			t.Errorf("Delete() nonexistent key error: %v", err)
		}
	})

	t.Run("ValueIsCopied", func(t *testing.T) {
		buf := []byte("snapshot")
		db.Put([]byte("copy"), buf)
		buf[0] = 'X'
		val, _ := db.Get([]byte("copy"))
		if string(val) != "snapshot" {
			t.Errorf("stored value aliased caller buffer: %q", val)
		}
	})

	t.Run("ForEach", func(t *testing.T) {
		db.Put([]byte("prefix/a"), []byte("1"))
		db.Put([]byte("prefix/b"), []byte("2"))
		db.Put([]byte("prefix/c"), []byte("3"))
		db.Put([]byte("other/x"), []byte("4"))

		var keys []string
		err := db.ForEach([]byte("prefix/"), func(key, value []byte) error {
			keys = append(keys, string(key))
			return nil
		})
		if err != nil {
			t.Fatalf("ForEach() error: %v", err)
		}
		if len(keys) != 3 {
			t.Errorf("ForEach(prefix/) count = %d, want 3", len(keys))
		}
	})

	t.Run("ForEachEmpty", func(t *testing.T) {
		var count int
		err := db.ForEach([]byte("nonexistent/"), func(key, value []byte) error {
			count++
			return nil
		})
		if err != nil || count != 0 {
			t.Errorf("ForEach(nonexistent/) = %d, %v", count, err)
		}
	})
}

func TestMemoryDB(t *testing.T) {
	db := NewMemory()
	defer db.Close()
	testDB(t, db)
}

func TestBadgerDB(t *testing.T) {
	db, err := NewBadger(t.TempDir())
	if err != nil {
		t.Fatalf("NewBadger() error: %v", err)
	}
	defer db.Close()
	testDB(t, db)
}

func TestRedisDB(t *testing.T) {
	s := miniredis.RunT(t)
	db, err := NewRedis(RedisOptions{Addr: s.Addr()})
	if err != nil {
		t.Fatalf("NewRedis() error: %v", err)
	}
	defer db.Close()
	testDB(t, db)
}

func TestRedisDB_Unreachable(t *testing.T) {
	s := miniredis.RunT(t)
	addr := s.Addr()
	s.Close()

	if _, err := NewRedis(RedisOptions{Addr: addr}); err == nil {
		t.Fatal("expected error connecting to a closed server")
	}
}

func TestRedisDB_GlobPrefixIsLiteral(t *testing.T) {
	s := miniredis.RunT(t)
	db := NewRedisFromClient(goredis.NewClient(&goredis.Options{Addr: s.Addr()}), 0)
	defer db.Close()

	db.Put([]byte("a*/1"), []byte("x"))
	db.Put([]byte("ab/2"), []byte("y"))

	var count int
	if err := db.ForEach([]byte("a*/"), func(_, _ []byte) error { count++; return nil }); err != nil {
		t.Fatalf("ForEach() error: %v", err)
	}
	if count != 1 {
		t.Errorf("ForEach(a*/) count = %d, want 1", count)
	}
}

func TestBadgerDB_Persistence(t *testing.T) {
	dir := t.TempDir()

	db1, err := NewBadger(dir)
	if err != nil {
		t.Fatalf("NewBadger() error: %v", err)
	}
	db1.Put([]byte("persist"), []byte("data"))
	db1.Close()

	db2, err := NewBadger(dir)
	if err != nil {
		t.Fatalf("NewBadger() reopen error: %v", err)
	}
	defer db2.Close()

	val, err := db2.Get([]byte("persist"))
	if err != nil {
		t.Fatalf("Get() after reopen error: %v", err)
	}
	if !bytes.Equal(val, []byte("data")) {
		t.Errorf("persisted value = %q, want %q", val, "data")
	}
}

func TestBadgerDB_Locked(t *testing.T) {
	dir := t.TempDir()
	db1, err := NewBadger(dir)
	if err != nil {
		t.Fatalf("NewBadger() error: %v", err)
	}
	defer db1.Close()

	if _, err := NewBadger(dir); err == nil {
		t.Fatal("second open of the same directory should fail")
	}
}

package kennel

import (
	"strconv"
	"sync/atomic"

	"kennel/infra/memory"
)

// Dog is a list entry. The payload is written before the dog is
// published and is never mutated while the dog is reachable; only the
// linkage changes.
type Dog struct {
	Breed     string
	Age       int
	Trainable bool

	next    atomic.Pointer[Dog]
	prev    *Dog // writer-only
	reclaim memory.Handle
}

// View is a value copy of a dog's payload, safe to keep after the read
// section that produced it has ended.
type View struct {
	Breed     string
	Age       int
	Trainable bool
}

// poison marks the back link of an unlinked dog.
var poison = &Dog{}

// Handle returns the deferred-free handle used to retire d.
func (d *Dog) Handle() *memory.Handle {
	return &d.reclaim
}

// Linked reports whether d is part of a list or was removed from one
// and not yet released.
func (d *Dog) Linked() bool {
	return d.prev != nil
}

func (d *Dog) View() View {
	return View{Breed: d.Breed, Age: d.Age, Trainable: d.Trainable}
}

func (d *Dog) String() string {
	return d.View().String()
}

func (v View) String() string {
	return v.Breed + " " + strconv.Itoa(v.Age) + " " + strconv.FormatBool(v.Trainable)
}

// ResetDog scrubs a released dog before it is pooled again.
func ResetDog(d *Dog) {
	d.Breed = ""
	d.Age = 0
	d.Trainable = false
	d.next.Store(nil)
	d.prev = nil
}

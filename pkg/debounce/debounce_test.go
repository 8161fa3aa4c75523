package debounce

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTriggerCoalescesBursts(t *testing.T) {
	d := New(50 * time.Millisecond)
	defer d.Stop()

	var fired int32
	var last int32
	for i := int32(1); i <= 5; i++ {
		v := i
		d.Trigger("field", func() {
			atomic.AddInt32(&fired, 1)
			atomic.StoreInt32(&last, v)
		})
	}

	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&fired), "only the last trigger should fire")
	assert.Equal(t, int32(5), atomic.LoadInt32(&last))
}

func TestIndependentKeys(t *testing.T) {
	d := New(30 * time.Millisecond)
	defer d.Stop()

	var a, b int32
	d.Trigger("a", func() { atomic.AddInt32(&a, 1) })
	d.Trigger("b", func() { atomic.AddInt32(&b, 1) })

	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&a))
	assert.Equal(t, int32(1), atomic.LoadInt32(&b))
}

func TestCancel(t *testing.T) {
	d := New(30 * time.Millisecond)
	defer d.Stop()

	var fired int32
	d.Trigger("field", func() { atomic.AddInt32(&fired, 1) })
	d.Cancel("field")

	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, int32(0), atomic.LoadInt32(&fired))
}

func TestStopRejectsFurtherTriggers(t *testing.T) {
	d := New(10 * time.Millisecond)

	var fired int32
	d.Trigger("field", func() { atomic.AddInt32(&fired, 1) })
	d.Stop()
	d.Trigger("field", func() { atomic.AddInt32(&fired, 1) })

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(0), atomic.LoadInt32(&fired))
}

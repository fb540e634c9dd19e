package dispatcher

import "testing"

func TestSubdomainQueueEnqueueDequeue(t *testing.T) {
	q := NewSubdomainQueue([]string{"www", "api"})

	label, ok := q.Dequeue()
	if !ok || label != "www" {
		t.Errorf("Dequeue = %q, %v, want www, true", label, ok)
	}

	q.Enqueue("mail")
	if q.Remaining() != 2 {
		t.Errorf("Remaining = %d, want 2", q.Remaining())
	}
}

func TestSubdomainQueuePriority(t *testing.T) {
	q := NewSubdomainQueue([]string{"www", "api"})
	q.EnqueuePriority("retry")

	label, ok := q.Dequeue()
	if !ok || label != "retry" {
		t.Errorf("Dequeue = %q, %v, want retry, true", label, ok)
	}
}

func TestSubdomainQueueDequeueEmpty(t *testing.T) {
	q := NewSubdomainQueue(nil)
	if _, ok := q.Dequeue(); ok {
		t.Errorf("Dequeue on empty queue should fail")
	}
}

func TestSubdomainQueueRequeueGoesToTail(t *testing.T) {
	q := NewSubdomainQueue([]string{"www"})
	q.Requeue("lost")

	first, _ := q.Dequeue()
	if first != "www" {
		t.Errorf("first = %q, want www", first)
	}
	second, _ := q.Dequeue()
	if second != "lost" {
		t.Errorf("second = %q, want lost", second)
	}
}

package hwbreak

import "sync"

type serialThreads struct {
	threads Threads

	mu    sync.Mutex
	locks map[uint32]*sync.Mutex
}

// Serialize returns a Threads that allows at most one open handle per
// thread id at a time: OpenThread blocks until the previous handle to the
// same thread has been closed. Since a handle is held for the whole of
// Enable, Disable and Inspect, calls made through the returned value never
// interleave on the same thread.
func Serialize(threads Threads) Threads {
	return &serialThreads{threads: threads, locks: make(map[uint32]*sync.Mutex)}
}

func (s *serialThreads) lock(tid uint32) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[tid]
	if !ok {
		l = new(sync.Mutex)
		s.locks[tid] = l
	}
	return l
}

func (s *serialThreads) OpenThread(tid uint32) (Thread, error) {
	l := s.lock(tid)
	l.Lock()
	t, err := s.threads.OpenThread(tid)
	if err != nil {
		l.Unlock()
		return nil, err
	}
	return &serialThread{Thread: t, unlock: l.Unlock}, nil
}

type serialThread struct {
	Thread
	once   sync.Once
	unlock func()
}

func (t *serialThread) Close() error {
	err := t.Thread.Close()
	t.once.Do(t.unlock)
	return err
}

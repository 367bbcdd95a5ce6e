package documents

// event is a state change applied by Manager.apply.
type event interface {
	isEvent()
}

type filesListed struct{ files []TrackedFile }

type filesAdded struct{ files []TrackedFile }

type uploadStarted struct{ name string }

type uploadSettled struct {
	name string
	err  error
}

type filesReset struct{}

func (filesListed) isEvent()   {}
func (filesAdded) isEvent()    {}
func (uploadStarted) isEvent() {}
func (uploadSettled) isEvent() {}
func (filesReset) isEvent()    {}

// apply is the only place the tracked set and outcomes change.
func (m *Manager) apply(ev event) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch e := ev.(type) {
	case filesListed:
		m.files = e.files
	case filesAdded:
		m.files = append(m.files, e.files...)
	case uploadStarted:
		m.outcomes[e.name] = OutcomePending
	case uploadSettled:
		// Last write wins per name; same-named files share one outcome.
		if e.err != nil {
			m.outcomes[e.name] = OutcomeError
		} else {
			m.outcomes[e.name] = OutcomeSuccess
		}
	case filesReset:
		m.files = nil
		m.outcomes = make(map[string]Outcome)
	}
}

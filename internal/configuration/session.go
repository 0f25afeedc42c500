package configuration

import (
	"fmt"
	"sort"
	"sync"

	"tradebot-config/internal/document"
)

// GlobalConfigKey is the key the whole document is registered under
const GlobalConfigKey = "global_config"

// Session owns the loaded document and its snapshots for the process
// lifetime. It serializes access so HTTP handlers can share it.
type Session struct {
	mu            sync.Mutex
	doc           *document.Document
	snapshots     *Manager
	checker       *HealthChecker
	inBacktesting bool
}

// NewSession creates a session around an already loaded document
func NewSession(doc *document.Document, checker *HealthChecker, snapshots *Manager, inBacktesting bool) *Session {
	return &Session{
		doc:           doc,
		snapshots:     snapshots,
		checker:       checker,
		inBacktesting: inBacktesting,
	}
}

// Start health checks the document and registers the checked result
func (s *Session) Start() (*Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	report, err := s.check()
	if err != nil {
		return report, err
	}
	if err := s.registerSnapshots(); err != nil {
		return report, err
	}
	return report, nil
}

// Check runs the health check again on the current document
func (s *Session) Check() (*Report, error) {
	return s.CheckMode(s.inBacktesting)
}

// CheckMode is Check with an explicit backtesting mode
func (s *Session) CheckMode(inBacktesting bool) (*Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runCheck(inBacktesting)
}

// InBacktesting reports the mode the session was started in
func (s *Session) InBacktesting() bool {
	return s.inBacktesting
}

func (s *Session) check() (*Report, error) {
	return s.runCheck(s.inBacktesting)
}

func (s *Session) runCheck(inBacktesting bool) (*Report, error) {
	checked, report, err := s.checker.RunWithReport(s.doc, inBacktesting)
	if doc, ok := checked.(*document.Document); ok {
		s.doc = doc
	} else if checked != nil {
		return report, fmt.Errorf("unexpected document type %T", checked)
	}
	return report, err
}

func (s *Session) registerSnapshots() error {
	if err := s.snapshots.Register(GlobalConfigKey, s.doc, true); err != nil {
		return err
	}

	names := make([]string, 0, len(s.doc.Config()))
	for name := range s.doc.Config() {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if section, ok := s.doc.Section(name); ok {
			if err := s.snapshots.Register(name, section, false); err != nil {
				return err
			}
		}
	}
	return nil
}

// Startup returns the startup snapshot registered under key
func (s *Session) Startup(key string, dictOnly bool) (interface{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshots.GetStartup(key, dictOnly)
}

// Edited returns the edited snapshot registered under key
func (s *Session) Edited(key string, dictOnly bool) (interface{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshots.GetEdited(key, dictOnly)
}

// Keys lists the registered snapshot keys
func (s *Session) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshots.Keys()
}

// Document returns the current document
func (s *Session) Document() *document.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc
}

package engine

const eventBufferSize = 16

// Subscription provides event channels for a subscriber.
type Subscription struct {
	StateChanged    <-chan StateChange
	TrackChanged    <-chan TrackChange
	QueueChanged    <-chan QueueChange
	ModeChanged     <-chan ModeChange
	PositionChanged <-chan PositionChange
	RelatedChanged  <-chan RelatedChange
	FeaturesChanged <-chan FeaturesChange
	ColorsChanged   <-chan ColorsChange
	Error           <-chan ErrorEvent
	Done            <-chan struct{}

	// Internal write channels
	stateCh    chan StateChange
	trackCh    chan TrackChange
	queueCh    chan QueueChange
	modeCh     chan ModeChange
	positionCh chan PositionChange
	relatedCh  chan RelatedChange
	featuresCh chan FeaturesChange
	colorsCh   chan ColorsChange
	errorCh    chan ErrorEvent
	doneCh     chan struct{}
}

// newSubscription creates a subscription with buffered channels.
func newSubscription() *Subscription {
	s := &Subscription{
		stateCh:    make(chan StateChange, eventBufferSize),
		trackCh:    make(chan TrackChange, eventBufferSize),
		queueCh:    make(chan QueueChange, eventBufferSize),
		modeCh:     make(chan ModeChange, eventBufferSize),
		positionCh: make(chan PositionChange, eventBufferSize),
		relatedCh:  make(chan RelatedChange, eventBufferSize),
		featuresCh: make(chan FeaturesChange, eventBufferSize),
		colorsCh:   make(chan ColorsChange, eventBufferSize),
		errorCh:    make(chan ErrorEvent, eventBufferSize),
		doneCh:     make(chan struct{}),
	}
	s.StateChanged = s.stateCh
	s.TrackChanged = s.trackCh
	s.QueueChanged = s.queueCh
	s.ModeChanged = s.modeCh
	s.PositionChanged = s.positionCh
	s.RelatedChanged = s.relatedCh
	s.FeaturesChanged = s.featuresCh
	s.ColorsChanged = s.colorsCh
	s.Error = s.errorCh
	s.Done = s.doneCh
	return s
}

// close signals subscribers to stop by closing doneCh.
func (s *Subscription) close() {
	close(s.doneCh)
}

// All sends are non-blocking; a slow subscriber drops events rather than
// stalling the session.

func (s *Subscription) sendState(e StateChange) {
	select {
	case s.stateCh <- e:
	default:
	}
}

func (s *Subscription) sendTrack(e TrackChange) {
	select {
	case s.trackCh <- e:
	default:
	}
}

func (s *Subscription) sendQueue(e QueueChange) {
	select {
	case s.queueCh <- e:
	default:
	}
}

func (s *Subscription) sendMode(e ModeChange) {
	select {
	case s.modeCh <- e:
	default:
	}
}

func (s *Subscription) sendPosition(e PositionChange) {
	select {
	case s.positionCh <- e:
	default:
	}
}

func (s *Subscription) sendRelated(e RelatedChange) {
	select {
	case s.relatedCh <- e:
	default:
	}
}

func (s *Subscription) sendFeatures(e FeaturesChange) {
	select {
	case s.featuresCh <- e:
	default:
	}
}

func (s *Subscription) sendColors(e ColorsChange) {
	select {
	case s.colorsCh <- e:
	default:
	}
}

func (s *Subscription) sendError(e ErrorEvent) {
	select {
	case s.errorCh <- e:
	default:
	}
}

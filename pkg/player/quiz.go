package player

import (
	"context"
	"slices"

	"github.com/jwebster45206/word-quest/pkg/state"
	"github.com/jwebster45206/word-quest/pkg/story"
)

// Phase is the state of the active quiz.
type Phase string

const (
	PhaseIdle              Phase = "idle"
	PhaseChoiceArmed       Phase = "choice_armed"
	PhaseChallengeOpen     Phase = "challenge_open"
	PhaseChallengeAnswered Phase = "challenge_answered"
	PhaseResolved          Phase = "resolved"
)

// quizState is transient presentation state. It is never persisted; a
// reload returns the active quiz to idle.
type quizState struct {
	phase     Phase
	quizIndex int
	choiceID  string
	selected  string
}

func (q quizState) current() Phase {
	if q.phase == "" {
		return PhaseIdle
	}
	return q.phase
}

// ChallengeView is the part of a challenge shown while it is open.
// The correct answer is not included.
type ChallengeView struct {
	Subject  story.Subject `json:"subject"`
	Question string        `json:"question"`
	Options  []string      `json:"options,omitempty"`
	Hint     string        `json:"hint,omitempty"`
}

func viewOf(c *story.Challenge) *ChallengeView {
	return &ChallengeView{
		Subject:  c.Subject,
		Question: c.Question,
		Options:  c.Options,
		Hint:     c.Hint,
	}
}

// QuizResult reports the outcome of a quiz interaction.
type QuizResult struct {
	Phase        Phase          `json:"phase"`
	QuizIndex    int            `json:"quizIndex"`
	ChoiceID     string         `json:"choiceId,omitempty"`
	Locked       bool           `json:"locked,omitempty"`
	RequiresItem string         `json:"requiresItem,omitempty"`
	Challenge    *ChallengeView `json:"challenge,omitempty"`
	Selected     string         `json:"selected,omitempty"`
	Correct      *bool          `json:"correct,omitempty"`
	Explanation  string         `json:"explanation,omitempty"`
	NextNodeID   string         `json:"nextNodeId,omitempty"`
}

// active returns the interactive quiz part and its node. Callers hold s.mu.
func (s *Session) active(quizIndex int) (Part, *story.Node, error) {
	part, ok := ActiveQuiz(Linearize(s.progress, s.graph))
	if !ok || part.QuizIndex != quizIndex {
		return Part{}, nil, ErrQuizNotActive
	}
	node, ok := s.graph.Node(part.NodeID)
	if !ok {
		return Part{}, nil, ErrQuizNotActive
	}
	return part, node, nil
}

// SelectChoice arms a choice at the active quiz. A choice whose required item
// is missing is inert: the result is marked Locked and nothing changes.
// A choice without a challenge resolves immediately.
func (s *Session) SelectChoice(ctx context.Context, quizIndex int, choiceID string) (QuizResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, node, err := s.active(quizIndex)
	if err != nil {
		return QuizResult{}, err
	}
	choice, ok := node.Choice(choiceID)
	if !ok {
		return QuizResult{}, ErrUnknownChoice
	}

	if choice.RequiresItem != "" && !s.progress.HasItem(choice.RequiresItem) {
		s.logger.Debug("Locked choice selected", "node", node.ID, "choice", choice.ID, "requires_item", choice.RequiresItem)
		return QuizResult{
			Phase:        s.quiz.current(),
			QuizIndex:    quizIndex,
			ChoiceID:     choice.ID,
			Locked:       true,
			RequiresItem: choice.RequiresItem,
		}, nil
	}

	s.quiz = quizState{phase: PhaseChoiceArmed, quizIndex: quizIndex, choiceID: choice.ID}

	if choice.Challenge == nil {
		s.resolve(ctx, quizIndex, node, choice)
		return QuizResult{
			Phase:      PhaseResolved,
			QuizIndex:  quizIndex,
			ChoiceID:   choice.ID,
			NextNodeID: choice.NextNodeID,
		}, nil
	}

	s.quiz.phase = PhaseChallengeOpen
	return QuizResult{
		Phase:     PhaseChallengeOpen,
		QuizIndex: quizIndex,
		ChoiceID:  choice.ID,
		Challenge: viewOf(choice.Challenge),
	}, nil
}

// AnswerChallenge checks an answer to the open challenge of choiceID.
// A wrong answer changes nothing but the transient selection and may be
// followed by another attempt; there is no attempt limit. A correct answer
// resolves the quiz.
func (s *Session) AnswerChallenge(ctx context.Context, choiceID, option string) (QuizResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	phase := s.quiz.current()
	if (phase != PhaseChallengeOpen && phase != PhaseChallengeAnswered) || s.quiz.choiceID != choiceID {
		return QuizResult{}, ErrNoOpenChallenge
	}
	_, node, err := s.active(s.quiz.quizIndex)
	if err != nil {
		s.quiz = quizState{}
		return QuizResult{}, err
	}
	choice, ok := node.Choice(choiceID)
	if !ok || choice.Challenge == nil {
		s.quiz = quizState{}
		return QuizResult{}, ErrNoOpenChallenge
	}

	challenge := choice.Challenge
	if len(challenge.Options) > 0 && !slices.Contains(challenge.Options, option) {
		return QuizResult{}, ErrUnknownOption
	}

	quizIndex := s.quiz.quizIndex
	correct := challenge.IsCorrect(option)
	if !correct {
		s.quiz.phase = PhaseChallengeAnswered
		s.quiz.selected = option
		s.logger.Debug("Challenge answered incorrectly", "node", node.ID, "choice", choice.ID, "subject", challenge.Subject)
		return QuizResult{
			Phase:     PhaseChallengeAnswered,
			QuizIndex: quizIndex,
			ChoiceID:  choice.ID,
			Challenge: viewOf(challenge),
			Selected:  option,
			Correct:   &correct,
		}, nil
	}

	s.logger.Debug("Challenge answered correctly", "node", node.ID, "choice", choice.ID, "subject", challenge.Subject)
	s.resolve(ctx, quizIndex, node, choice)
	return QuizResult{
		Phase:       PhaseResolved,
		QuizIndex:   quizIndex,
		ChoiceID:    choice.ID,
		Selected:    option,
		Correct:     &correct,
		Explanation: challenge.Explanation,
		NextNodeID:  choice.NextNodeID,
	}, nil
}

// Retry clears a wrong answer and reopens the challenge.
func (s *Session) Retry() (QuizResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.quiz.current() != PhaseChallengeAnswered {
		return QuizResult{}, ErrNoOpenChallenge
	}
	_, node, err := s.active(s.quiz.quizIndex)
	if err != nil {
		s.quiz = quizState{}
		return QuizResult{}, err
	}
	choice, ok := node.Choice(s.quiz.choiceID)
	if !ok || choice.Challenge == nil {
		s.quiz = quizState{}
		return QuizResult{}, ErrNoOpenChallenge
	}

	s.quiz.phase = PhaseChallengeOpen
	s.quiz.selected = ""
	return QuizResult{
		Phase:     PhaseChallengeOpen,
		QuizIndex: s.quiz.quizIndex,
		ChoiceID:  choice.ID,
		Challenge: viewOf(choice.Challenge),
	}, nil
}

// CancelChallenge closes an unanswered or wrongly answered challenge and
// returns the quiz to idle so another choice can be picked.
func (s *Session) CancelChallenge() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quiz = quizState{}
}

// QuizPhase reports the transient state of the active quiz.
func (s *Session) QuizPhase() (Phase, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.quiz.current(), s.quiz.choiceID
}

// resolve commits the quiz: the answer, the node's items and the move to the
// choice's target. Callers hold s.mu.
func (s *Session) resolve(ctx context.Context, quizIndex int, node *story.Node, choice *story.Choice) {
	s.logger.Info("Choice resolved", "node", node.ID, "choice", choice.ID, "quiz_index", quizIndex, "next_node", choice.NextNodeID)
	s.commit(ctx, state.Step{
		NextNodeID:  choice.NextNodeID,
		ItemsGained: node.ItemsGained,
		Answer:      &state.QuizAnswer{QuizIndex: quizIndex, ChoiceID: choice.ID},
	})
}

package passes

import (
	"context"
	"fmt"

	cerrdefs "github.com/containerd/errdefs"
	"github.com/containerd/log"
	"github.com/kolah/sdkprep/internal/model"
	"github.com/pb33f/jsonpath/pkg/jsonpath"
)

// Guard is a precondition on the input document. Any node matched by Query
// means upstream has not yet fixed the shape Function relies on. Guards are
// migration checks and are meant to be removed once upstream is fixed.
type Guard struct {
	Name     string
	Query    string
	Function string
	Message  string
}

// GuardViolation aborts a run before any pass has touched the document.
type GuardViolation struct {
	Guard    string
	Function string
	Message  string
	Matches  int
}

func (e *GuardViolation) Error() string {
	msg := fmt.Sprintf("guard %q matched %d node(s); %s would be generated incorrectly", e.Guard, e.Matches, e.Function)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

func (e *GuardViolation) Unwrap() error {
	return cerrdefs.ErrFailedPrecondition
}

type GuardCheck struct {
	Guards []Guard
}

func (*GuardCheck) Name() string { return "guard" }

func (g *GuardCheck) Apply(ctx context.Context, doc *model.Document) (int, error) {
	for _, guard := range g.Guards {
		path, err := jsonpath.NewPath(guard.Query)
		if err != nil {
			return 0, fmt.Errorf("%w: guard %q: invalid query: %v", cerrdefs.ErrInvalidArgument, guard.Name, err)
		}

		matches := path.Query(doc.Root)
		log.G(ctx).WithFields(log.Fields{"guard": guard.Name, "matches": len(matches)}).Debug("guard evaluated")
		if len(matches) > 0 {
			return 0, &GuardViolation{
				Guard:    guard.Name,
				Function: guard.Function,
				Message:  guard.Message,
				Matches:  len(matches),
			}
		}
	}
	return 0, nil
}

package backup

import (
	"github.com/arthur-debert/relink/pkg/command"
	"github.com/arthur-debert/relink/pkg/errors"
	"github.com/arthur-debert/relink/pkg/paths"
)

// link creates the directory junction at source pointing at target, then
// re-checks through the inspector. Success reported by the command layer
// is not trusted on its own.
func (o *Orchestrator) link(source, target string) error {
	argv := command.MakeLink(source, target)
	res, err := o.run(argv, o.moveTimeout())
	if err != nil {
		return errors.Wrapf(err, errors.ErrLink, "cannot create junction at %s", source)
	}
	if !res.Success {
		return errors.Newf(errors.ErrLink, "junction creation failed at %s: %s", source, res.Stderr)
	}

	if !o.inspector.IsJunction(source) {
		return errors.Newf(errors.ErrLink,
			"junction creation reported success but no junction present at %s", source)
	}

	return nil
}

// verify asserts the committed layout: source is a junction, the target
// exists, and the junction's resolved target equals the effective target
// after canonicalization. A mismatch is a failure, never accepted.
func (o *Orchestrator) verify(source, target string) error {
	if !o.inspector.IsJunction(source) {
		return errors.Newf(errors.ErrVerification, "source is not a junction: %s", source)
	}
	if !o.inspector.Exists(target) {
		return errors.Newf(errors.ErrVerification, "target does not exist: %s", target)
	}

	resolved, ok := o.inspector.JunctionTarget(source)
	if !ok {
		return errors.Newf(errors.ErrVerification, "cannot resolve junction target of %s", source)
	}

	canonResolved, err := paths.Canonicalize(resolved)
	if err != nil {
		return errors.Wrapf(err, errors.ErrVerification, "cannot canonicalize %s", resolved)
	}
	canonTarget, err := paths.Canonicalize(target)
	if err != nil {
		return errors.Wrapf(err, errors.ErrVerification, "cannot canonicalize %s", target)
	}

	if canonResolved != canonTarget {
		return errors.Newf(errors.ErrVerification,
			"junction target mismatch: %s resolves to %s, expected %s", source, canonResolved, canonTarget)
	}

	return nil
}

// Package api holds the error taxonomy shared by the workflow builder and the
// cluster checks.
//
// # Error Kinds
//
//   - ValidationError: malformed configuration, detected before any document
//     is produced.
//   - ReferenceError: a DAG, task or dependency name that does not exist when
//     it is referenced, or a name that is already taken.
//   - TimeoutError: a workload or endpoint that did not become ready in time.
//   - UnexpectedClusterStateError: the cluster behaved differently from what a
//     check expected.
//   - NotFoundError: a lookup (KfDef file, secret, IAM binding) that found nothing.
//
// Every kind has an Is* helper that unwraps with errors.As, so callers can
// wrap freely with fmt.Errorf("...: %w", err).
package api

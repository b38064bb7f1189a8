// Package dag models the workflow document as typed records.
//
// A Document owns the DAG templates of a workflow (e2e, tests and
// exit-handler by default) and one dependency graph per DAG. Tasks are
// appended with InsertTask, InsertSubDAGInvocation or InsertTaskReference,
// each of which rejects unknown DAGs, unknown dependencies and taken names
// with an *api.ReferenceError before touching the document. Workflow renders
// the typed argoproj.io/v1alpha1 document for serialization or submission.
package dag

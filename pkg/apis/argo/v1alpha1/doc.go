// Package v1alpha1 contains the subset of the Argo workflow API that the kfctl
// E2E builder produces.
//
// Only the fields the builder sets are modelled. The document is handed to the
// workflow engine as-is, so field names and JSON tags follow the engine's
// argoproj.io/v1alpha1 schema.
//
// Example:
//
//	apiVersion: argoproj.io/v1alpha1
//	kind: Workflow
//	metadata:
//	  name: kfctl-e2e-1234
//	  namespace: kubeflow-test-infra
//	spec:
//	  entrypoint: e2e
//	  onExit: exit-handler
//	  ttlSecondsAfterFinished: 604800
//	  templates:
//	  - name: e2e
//	    dag:
//	      tasks:
//	      - name: checkout
//	        template: checkout
//	  - name: checkout
//	    container:
//	      command: ["/usr/local/bin/checkout_repos.sh", "..."]
package v1alpha1

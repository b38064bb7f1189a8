// Package iam verifies the IAM wiring kfctl sets up for a GCP deployment:
// the admin service account owns the user service account, and workload
// identity is granted on it.
package iam

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/oauth2/google"
	iamv1 "google.golang.org/api/iam/v1"
	"google.golang.org/api/option"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"

	"kfctl-e2e/internal/api"
	"kfctl-e2e/pkg/logging"
)

const (
	RoleOwner                = "roles/owner"
	RoleWorkloadIdentityUser = "roles/iam.workloadIdentityUser"

	// UserSecret holds the user service account key in the Kubeflow namespace.
	UserSecret = "user-gcp-sa"
)

// PolicyGetter fetches the IAM policy of a service account resource.
type PolicyGetter interface {
	GetServiceAccountPolicy(ctx context.Context, resource string) (*iamv1.Policy, error)
}

type serviceGetter struct {
	svc *iamv1.Service
}

// NewPolicyGetter creates a getter backed by the IAM API. Without a
// credentials file the application default credentials are used.
func NewPolicyGetter(ctx context.Context, credentialsFile string) (PolicyGetter, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	} else {
		creds, err := google.FindDefaultCredentials(ctx, iamv1.CloudPlatformScope)
		if err != nil {
			return nil, fmt.Errorf("failed to find default credentials: %w", err)
		}
		opts = append(opts, option.WithCredentials(creds))
	}
	svc, err := iamv1.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create IAM service: %w", err)
	}
	return &serviceGetter{svc: svc}, nil
}

func (g *serviceGetter) GetServiceAccountPolicy(ctx context.Context, resource string) (*iamv1.Policy, error) {
	return g.svc.Projects.ServiceAccounts.GetIamPolicy(resource).Context(ctx).Do()
}

// UserServiceAccount is the resource name of the app's user service account.
func UserServiceAccount(project, app string) string {
	return fmt.Sprintf("projects/%s/serviceAccounts/%s-user@%s.iam.gserviceaccount.com", project, app, project)
}

// AdminMember is the policy member of the app's admin service account.
func AdminMember(project, app string) string {
	return fmt.Sprintf("serviceAccount:%s-admin@%s.iam.gserviceaccount.com", app, project)
}

// VerifyServiceAccountBindings checks the user service account's policy.
// A policy that is readable but wrong is an UnexpectedClusterStateError.
func VerifyServiceAccountBindings(ctx context.Context, getter PolicyGetter, project, app string) error {
	userSA := UserServiceAccount(project, app)
	adminSA := AdminMember(project, app)

	policy, err := getter.GetServiceAccountPolicy(ctx, userSA)
	if err != nil {
		return fmt.Errorf("failed to get IAM policy of %s: %w", userSA, err)
	}

	roleToMembers := map[string]map[string]bool{}
	for _, b := range policy.Bindings {
		if roleToMembers[b.Role] == nil {
			roleToMembers[b.Role] = map[string]bool{}
		}
		for _, m := range b.Members {
			roleToMembers[b.Role][m] = true
		}
	}

	owners, ok := roleToMembers[RoleOwner]
	if !ok {
		return policyError(userSA, RoleOwner+" binding", "no "+RoleOwner+" binding")
	}
	if !owners[adminSA] {
		return policyError(userSA, adminSA+" as owner", "owners are "+strings.Join(sortedKeys(owners), ","))
	}
	if _, ok := roleToMembers[RoleWorkloadIdentityUser]; !ok {
		return policyError(userSA, RoleWorkloadIdentityUser+" binding", "no "+RoleWorkloadIdentityUser+" binding")
	}
	logging.Info("IAM", "IAM policy of %s is as expected", userSA)
	return nil
}

func policyError(resource, expected, observed string) error {
	return &api.UnexpectedClusterStateError{
		Operation: "IAM policy check of " + resource,
		Expected:  expected,
		Observed:  observed,
	}
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// CheckSecret verifies that secret name exists in namespace.
func CheckSecret(ctx context.Context, client kubernetes.Interface, namespace, name string) error {
	_, err := client.CoreV1().Secrets(namespace).Get(ctx, name, metav1.GetOptions{})
	if apierrors.IsNotFound(err) {
		return api.NewNotFoundError("secret", namespace+"/"+name)
	}
	if err != nil {
		return fmt.Errorf("failed to get secret %s/%s: %w", namespace, name, err)
	}
	return nil
}

package embedder

import "context"

type namespaceKey struct{}

// ContextWithNamespace scopes downstream embedding caches to one partition
// owner for the duration of a request. It takes precedence over the
// namespace configured with WithNamespace.
func ContextWithNamespace(ctx context.Context, ns string) context.Context {
	return context.WithValue(ctx, namespaceKey{}, ns)
}

func NamespaceFrom(ctx context.Context) (string, bool) {
	ns, ok := ctx.Value(namespaceKey{}).(string)
	return ns, ok
}

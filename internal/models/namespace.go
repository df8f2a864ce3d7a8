package stamps

const (
	namespacePrefix = "stamps_state_"
	AnonNamespace   = namespacePrefix + "anon"
)

// NamespaceKey is the local storage key of an identity, "" is anonymous.
func NamespaceKey(identity string) string {
	if identity == "" {
		return AnonNamespace
	}
	return namespacePrefix + identity
}

// ключи водяных знаков синхронизации, отдельно на каждого пользователя
func LastPullKey(identity string) string {
	return "sync_last_pull_at_" + identity
}

func LastPushKey(identity string) string {
	return "sync_last_push_at_" + identity
}

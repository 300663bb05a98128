package eventbus

func resetInstalled() {
	installMu.Lock()
	installed = nil
	installMu.Unlock()
}

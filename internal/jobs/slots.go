package jobs

import "context"

// SlotPool は同時に実行できるジョブ数を制限するセマフォです。
// ワーカーはジョブ処理の前にスロットを取得し、終了時に返却します。
type SlotPool struct {
	slots chan struct{}
}

// NewSlotPool は size 個のスロットを持つプールを作成します。
func NewSlotPool(size int) *SlotPool {
	if size < 1 {
		size = 1
	}
	return &SlotPool{slots: make(chan struct{}, size)}
}

// Acquire は空きスロットを取得します。空きがない場合は
// 空くかコンテキストが打ち切られるまで待ちます。
func (p *SlotPool) Acquire(ctx context.Context) error {
	select {
	case p.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release は取得済みのスロットを返却します。
func (p *SlotPool) Release() {
	<-p.slots
}

// InUse は使用中のスロット数を返します。
func (p *SlotPool) InUse() int {
	return len(p.slots)
}

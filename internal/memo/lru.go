package memo

// lruNode is a node in a doubly-linked LRU list. The node stores its key
// so eviction can delete from the parent map in O(1).
type lruNode struct {
	key  Key
	prev *lruNode
	next *lruNode
}

// lruList is a doubly-linked list for LRU eviction. The list is not
// thread-safe; the owning shard handles synchronization.
//
// The head is the most recently used, the tail the least.
type lruList struct {
	head *lruNode
	tail *lruNode
	len  int
}

func (l *lruList) Len() int {
	return l.len
}

// PushFront adds a new node at the front and returns it for later access.
func (l *lruList) PushFront(key Key) *lruNode {
	node := &lruNode{key: key}
	if l.head == nil {
		l.head = node
		l.tail = node
	} else {
		node.next = l.head
		l.head.prev = node
		l.head = node
	}
	l.len++
	return node
}

// MoveToFront moves an existing node to the front.
func (l *lruList) MoveToFront(node *lruNode) {
	if node == nil || node == l.head {
		return
	}
	l.unlink(node)
	node.prev = nil
	node.next = l.head
	if l.head != nil {
		l.head.prev = node
	}
	l.head = node
	if l.tail == nil {
		l.tail = node
	}
	l.len++
}

// Remove unlinks a node from the list.
func (l *lruList) Remove(node *lruNode) {
	if node == nil {
		return
	}
	l.unlink(node)
}

// RemoveOldest removes and returns the key of the least recently used
// node. The second return is false when the list is empty.
func (l *lruList) RemoveOldest() (Key, bool) {
	if l.tail == nil {
		return Key{}, false
	}
	key := l.tail.key
	l.unlink(l.tail)
	return key, true
}

// unlink assumes node is currently linked.
func (l *lruList) unlink(node *lruNode) {
	if node.prev != nil {
		node.prev.next = node.next
	} else {
		l.head = node.next
	}
	if node.next != nil {
		node.next.prev = node.prev
	} else {
		l.tail = node.prev
	}
	node.prev = nil
	node.next = nil
	l.len--
}

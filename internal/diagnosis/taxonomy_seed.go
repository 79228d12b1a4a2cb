package diagnosis

// seedMisconceptions is the built-in taxonomy for the algorithms and machine
// learning course material. Topic-scoped signals assume the correct idea
// for that topic; unscoped signals look for an explicit wrong pairing.
var seedMisconceptions = []Misconception{
	{
		ID:          "dfs-bfs-confusion",
		Topics:      []string{"dfs", "bfs", "depth-first-search", "breadth-first-search", "graph-traversal"},
		Label:       "DFS/BFS confusion",
		Description: "Swaps the exploration order or frontier structure of depth-first and breadth-first search",
		Examples:    []string{"dfs explores breadth-first", "bfs uses a stack"},
		Signals: []Signal{
			{Topic: "dfs", Pattern: `\bbreadth[- ]?first\b`},
			{Topic: "dfs", Pattern: `\blevel[- ]by[- ]level\b`},
			{Topic: "dfs", Pattern: `\b(uses?|with) an? (fifo )?queue\b`},
			{Topic: "depth-first-search", Pattern: `\bbreadth[- ]?first\b`},
			{Topic: "bfs", Pattern: `\bdepth[- ]?first\b`},
			{Topic: "bfs", Pattern: `\b(uses?|with) an? (lifo )?stack\b`},
			{Topic: "bfs", Pattern: `\bbacktrack\w*`},
			{Topic: "breadth-first-search", Pattern: `\bdepth[- ]?first\b`},
			{Pattern: `\bdfs\b[^.]*\b(breadth[- ]?first|level[- ]by[- ]level)\b`},
			{Pattern: `\bbfs\b[^.]*\bdepth[- ]?first\b`},
		},
	},
	{
		ID:          "supervised-unsupervised-confusion",
		Topics:      []string{"supervised-learning", "unsupervised-learning", "clustering", "classification"},
		Label:       "Supervised/unsupervised confusion",
		Description: "Treats labeled training as unsupervised or clustering as needing labels",
		Examples:    []string{"classification does not need labels", "k-means is supervised"},
		Signals: []Signal{
			{Topic: "supervised-learning", Pattern: `\b(no|without|unlabell?ed)\s+(labels?|data)\b`},
			{Topic: "classification", Pattern: `\b(no|without)\s+labels?\b`},
			{Topic: "classification", Pattern: `\b(does not|doesn't|do not|don't) (need|require|use) labels?\b`},
			{Topic: "supervised-learning", Pattern: `\b(does not|doesn't|do not|don't) (need|require|use) labels?\b`},
			{Topic: "unsupervised-learning", Pattern: `\b(needs?|requires?|uses?)\s+(the\s+)?labell?ed\b`},
			{Topic: "clustering", Pattern: `\b(needs?|requires?|uses?)\s+(the\s+)?labell?ed\b`},
			{Topic: "clustering", Pattern: `\bclustering is (a )?supervised\b`},
			{Pattern: `\b(k-?means|clustering)\b[^.]*\bis (a )?supervised\b`},
			{Pattern: `\b(classification|regression)\b[^.]*\bis (an )?unsupervised\b`},
		},
	},
	{
		ID:          "overfitting-underfitting-confusion",
		Topics:      []string{"overfitting", "underfitting", "bias-variance", "regularization"},
		Label:       "Overfitting/underfitting confusion",
		Description: "Describes overfitting with underfitting symptoms or the reverse",
		Examples:    []string{"overfitting means the model is too simple", "underfitting is memorizing the training set"},
		Signals: []Signal{
			{Topic: "overfitting", Pattern: `\btoo simple\b`},
			{Topic: "overfitting", Pattern: `\bhigh bias\b`},
			{Topic: "underfitting", Pattern: `\bmemori[sz]\w*`},
			{Topic: "underfitting", Pattern: `\bhigh variance\b`},
			{Topic: "regularization", Pattern: `\b(increases?|adds?) (model )?(variance|complexity)\b`},
			{Pattern: `\boverfit\w*\b[^.]*\btoo simple\b`},
			{Pattern: `\bunderfit\w*\b[^.]*\bmemori[sz]\w*`},
		},
	},
	{
		ID:          "gradient-sign-error",
		Topics:      []string{"gradient-descent", "backpropagation", "optimization"},
		Label:       "Gradient sign error",
		Description: "Steps along the gradient instead of against it when minimizing loss",
		Examples:    []string{"we move in the direction of the gradient", "gradient descent maximizes the loss"},
		Signals: []Signal{
			{Topic: "gradient-descent", Pattern: `\b(move|step|go|update)s?\b[^.]*\b(in|along) the (direction of the )?gradient\b`},
			{Topic: "gradient-descent", Pattern: `\bmaximi[sz]\w* the (loss|error|cost)\b`},
			{Topic: "backpropagation", Pattern: `\badd(s|ing)? the gradient\b`},
			{Pattern: `\bgradient descent\b[^.]*\bmaximi[sz]\w* the (loss|error|cost)\b`},
		},
	},
	{
		ID:          "learning-rate-bigger-better",
		Topics:      []string{"learning-rate", "gradient-descent", "optimization"},
		Label:       "Bigger learning rate is always better",
		Description: "Believes a larger learning rate always converges faster or better",
		Examples:    []string{"a higher learning rate always converges faster"},
		Signals: []Signal{
			{Pattern: `\b(larger|bigger|higher|large|big|high) learning rates?\b[^.]*\b(always|guarantees?)\b`},
			{Topic: "learning-rate", Pattern: `\bcannot (diverge|overshoot)\b`},
		},
	},
	{
		ID:          "precision-recall-confusion",
		Topics:      []string{"precision", "recall", "evaluation-metrics", "f1-score"},
		Label:       "Precision/recall confusion",
		Description: "Swaps the denominators of precision and recall",
		Examples:    []string{"precision is the share of actual positives we found", "recall penalizes false positives"},
		Signals: []Signal{
			{Topic: "precision", Pattern: `\bfalse negatives?\b`},
			{Topic: "precision", Pattern: `\b(actual|all|true) positives? (we|it|the model) (found|caught|detected)\b`},
			{Topic: "recall", Pattern: `\bfalse positives?\b`},
			{Topic: "recall", Pattern: `\bpredicted positives?\b`},
			{Pattern: `\bprecision\b[^.]*\bfalse negatives?\b`},
			{Pattern: `\brecall\b[^.]*\bfalse positives?\b`},
		},
	},
	{
		ID:          "stack-queue-confusion",
		Topics:      []string{"stack", "queue", "data-structures"},
		Label:       "Stack/queue confusion",
		Description: "Swaps LIFO and FIFO ordering",
		Examples:    []string{"a stack is first in first out", "a queue is LIFO"},
		Signals: []Signal{
			{Topic: "stack", Pattern: `\b(fifo|first[- ]in,? first[- ]out)\b`},
			{Topic: "queue", Pattern: `\b(lifo|last[- ]in,? first[- ]out)\b`},
			{Pattern: `\bstacks?\b[^.]*\b(is|are) (fifo|first[- ]in,? first[- ]out)\b`},
			{Pattern: `\bqueues?\b[^.]*\b(is|are) (lifo|last[- ]in,? first[- ]out)\b`},
		},
	},
	{
		ID:          "correlation-causation",
		Topics:      []string{"correlation", "statistics", "causal-inference"},
		Label:       "Correlation implies causation",
		Description: "Concludes a causal effect from correlation alone",
		Examples:    []string{"the correlation proves that x causes y"},
		Signals: []Signal{
			{Pattern: `\bcorrelat\w*\b[^.]*\b(proves?|shows?|means?)\b[^.]*\bcaus\w*`},
		},
	},
	{
		ID:          "big-o-constant-factors",
		Topics:      []string{"big-o", "complexity", "asymptotic-analysis"},
		Label:       "Constant factors in Big-O",
		Description: "Keeps constant factors or lower-order terms in asymptotic notation",
		Examples:    []string{"the loop is O(2n)", "O(n^2 + n) is slower than O(n^2)"},
		Signals: []Signal{
			{Pattern: `\bo\(\s*[2-9]\d*\s*\*?\s*n\b`},
			{Topic: "big-o", Pattern: `\bconstants? (factors? )?matters?\b`},
			{Topic: "complexity", Pattern: `\bo\(\s*n\^?2\s*\+\s*n\s*\)`},
		},
	},
}

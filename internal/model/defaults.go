package model

// Built-in organizational defaults. These are the seed inputs: they are
// written to the persistent store only when it is empty, and the loaded
// store content is the source of truth afterwards. Each function
// returns a fresh value so callers can mutate freely.

// InitialConfig returns the default organizational configuration.
func InitialConfig() AppConfig {
	return AppConfig{
		Departments: []DepartmentMeta{
			{ID: "VD", Name: "Venda Direta", Icon: "Phone"},
			{ID: "VI", Name: "Vendas Indiretas", Icon: "Users"},
			{ID: "ENT", Name: "Enterprise", Icon: "Briefcase"},
			{ID: "FIN", Name: "Financeiro", Icon: "DollarSign"},
			{ID: "MKT", Name: "Marketing", Icon: "TrendingUp"},
			{ID: "OPS", Name: "Operações e CS", Icon: "Shield"},
			{ID: "TEC", Name: "Tecnologia", Icon: "Server"},
			{ID: "RH", Name: "Pessoas & Cultura", Icon: "Heart"},
		},
		Categories: map[string]CategoryMeta{
			"Growth & Scale":     {ID: "Growth & Scale", Label: "Crescimento", ColorTheme: "orange", Icon: "Rocket"},
			"Sales Engine":       {ID: "Sales Engine", Label: "Vendas", ColorTheme: "blue", Icon: "TrendingUp"},
			"Customer Obsession": {ID: "Customer Obsession", Label: "Clientes", ColorTheme: "rose", Icon: "HeartHandshake"},
			"Data Intelligence":  {ID: "Data Intelligence", Label: "Dados", ColorTheme: "cyan", Icon: "BarChart2"},
			"Automation & Ops":   {ID: "Automation & Ops", Label: "Automação", ColorTheme: "violet", Icon: "Zap"},
			"Tech & Cloud":       {ID: "Tech & Cloud", Label: "Tecnologia", ColorTheme: "slate", Icon: "Server"},
			"Finance & Gov":      {ID: "Finance & Gov", Label: "Finanças", ColorTheme: "emerald", Icon: "Coins"},
			"Innovation & AI":    {ID: "Innovation & AI", Label: "Inovação", ColorTheme: "fuchsia", Icon: "Brain"},
			"People & Culture":   {ID: "People & Culture", Label: "Pessoas", ColorTheme: "lime", Icon: "Users"},
		},
		Statuses: map[string]StatusMeta{
			"Planejado":          {ID: "Planejado", Label: "Planejado", ColorTheme: "slate", Icon: "Circle"},
			"Em Desenvolvimento": {ID: "Em Desenvolvimento", Label: "Em Desenv.", ColorTheme: "amber", Icon: "Clock"},
			"Em Progresso":       {ID: "Em Progresso", Label: "Em Progresso", ColorTheme: "blue", Icon: "TrendingUp"},
			"Concluído":          {ID: "Concluído", Label: "Concluído", ColorTheme: "emerald", Icon: "CheckCircle2"},
			"Bloqueado":          {ID: "Bloqueado", Label: "Bloqueado", ColorTheme: "red", Icon: "AlertCircle"},
		},
		RolePermissions: map[string][]string{
			// Full access, including global settings.
			"Administrador": {"ALL"},
			// Tactical access: edit actuals, create goals, manage area weights.
			"Gestor": {
				"view_global_dashboard",
				"view_all_departments",
				"kpi_create",
				"kpi_edit",
				"kpi_delete",
				"goal_create",
				"goal_edit",
				"goal_delete",
				"checkpoint_edit",
				"weights_manage",
				"snapshot_create",
				"logs_view",
			},
			// Read-only access.
			"Operacional": {
				"view_global_dashboard",
				"view_all_departments",
			},
		},
	}
}

// InitialData returns the default department data. All areas start
// empty except OPS, which carries the baseline Q1 indicators and goals.
func InitialData() map[string]Department {
	return map[string]Department{
		"VD":  {ID: "VD", Name: "Venda Direta", Label: "Vendas Diretas", KPIs: []KPI{}, Goals: []Goal{}, Checkpoints: []Checkpoint{}},
		"VI":  {ID: "VI", Name: "Vendas Indiretas", Label: "Canais & Parceiros", KPIs: []KPI{}, Goals: []Goal{}, Checkpoints: []Checkpoint{}},
		"ENT": {ID: "ENT", Name: "Enterprise", Label: "Grandes Contas", KPIs: []KPI{}, Goals: []Goal{}, Checkpoints: []Checkpoint{}},
		"FIN": {ID: "FIN", Name: "Financeiro", Label: "Financeiro & Admin", KPIs: []KPI{}, Goals: []Goal{}, Checkpoints: []Checkpoint{}},
		"MKT": {ID: "MKT", Name: "Marketing", Label: "Growth & Branding", KPIs: []KPI{}, Goals: []Goal{}, Checkpoints: []Checkpoint{}},
		"OPS": {
			ID:    "OPS",
			Name:  "Operações e CS",
			Label: "Ops & Sucesso",
			KPIs: []KPI{
				{ID: "kpi-ops-churn", Name: "Churn", Value: 0, Target: 60000, Unit: UnitCurrency, Trend: TrendDown, Icon: "AlertTriangle"},
				{ID: "kpi-ops-revenue", Name: "Novas Receitas", Value: 0, Target: 18000, Unit: UnitCurrency, Trend: TrendUp, Icon: "DollarSign"},
				{ID: "kpi-ops-nps", Name: "NPS", Value: 0, Target: 85, Unit: UnitNumber, Trend: TrendUp, Icon: "Heart"},
				{ID: "kpi-ops-csat", Name: "CSAT", Value: 0, Target: 4.6, Unit: UnitRating, Trend: TrendUp, Icon: "Star"},
				{ID: "kpi-ops-retention", Name: "Taxa de Retenção", Value: 0, Target: 15, Unit: UnitPercent, Trend: TrendUp, Icon: "Shield"},
			},
			Goals: []Goal{
				{
					ID: "goal-ops-1", Title: "Relatórios Insights (IA)", Category: "Innovation & AI", Status: "Planejado",
					Description:     "Produzir relatórios gerenciais e estratégicos de forma automatizada, com apoio de IA.",
					CalculationType: CalcManual,
				},
				{
					ID: "goal-ops-2", Title: "Gamificação - 6 Indicações", Category: "Growth & Scale", Status: "Planejado",
					Description:     "Estimular 6 indicações de novas empresas no trimestre por meio de mecânica de benefícios.",
					CalculationType: CalcQuantitative, CurrentValue: 0, TargetValue: 6, MetricUnit: "Indicações",
				},
				{
					ID: "goal-ops-3", Title: "Upsell - 24 Contas", Category: "Customer Obsession", Status: "Planejado",
					Description:     "Atuação proativa do CSM em pelo menos 24 contas no trimestre.",
					CalculationType: CalcQuantitative, CurrentValue: 0, TargetValue: 24, MetricUnit: "Contas",
				},
				{
					ID: "goal-ops-4", Title: "Win Back", Category: "Sales Engine", Status: "Planejado",
					Description:     "Reconquistar clientes que estão fora da base há 180 dias.",
					CalculationType: CalcManual,
				},
				{
					ID: "goal-ops-5", Title: "Crossell - 2 Projetos", Category: "Sales Engine", Status: "Planejado",
					Description:     "Fechar no mínimo 2 projetos de consumo de dados com clientes Key Accounts no Q1.",
					CalculationType: CalcQuantitative, CurrentValue: 0, TargetValue: 2, MetricUnit: "Projetos",
				},
				{
					ID: "goal-ops-6", Title: "Processo de Retenção com IA", Category: "Innovation & AI", Status: "Planejado",
					Description:     "Desenhar o processo de retenção usando IA.",
					CalculationType: CalcMilestone,
					Milestones: []Milestone{
						{ID: "m1", Label: "Mapeamento do processo atual", Weight: 30, Completed: false},
						{ID: "m2", Label: "Desenho do fluxo com IA", Weight: 40, Completed: false},
						{ID: "m3", Label: "Implementação e Teste", Weight: 30, Completed: false},
					},
				},
				{
					ID: "goal-ops-7", Title: "Postagens Automáticas", Category: "Automation & Ops", Status: "Planejado",
					Description:     "Automatizar a criação e publicação de conteúdos.",
					CalculationType: CalcManual,
				},
				{
					ID: "goal-ops-8", Title: "Health Score", Category: "Data Intelligence", Status: "Planejado",
					Description:     "Monitoramento de saúde da carteira.",
					CalculationType: CalcManual,
				},
			},
			Checkpoints: []Checkpoint{},
		},
		"TEC": {ID: "TEC", Name: "Tecnologia", Label: "Engenharia & Produto", KPIs: []KPI{}, Goals: []Goal{}, Checkpoints: []Checkpoint{}},
		"RH":  {ID: "RH", Name: "Pessoas & Cultura", Label: "RH & Cultura", KPIs: []KPI{}, Goals: []Goal{}, Checkpoints: []Checkpoint{}},
	}
}

// DefaultWeightConfig returns the 50/50 split used for departments
// without a stored weight configuration.
func DefaultWeightConfig() WeightConfig {
	return WeightConfig{KPIWeight: 50, GoalWeight: 50, KPIs: map[string]float64{}, Goals: map[string]float64{}}
}

// DefaultWeights returns the default weight map covering every default
// department.
func DefaultWeights() map[string]WeightConfig {
	out := make(map[string]WeightConfig)
	for _, dept := range InitialConfig().Departments {
		out[dept.ID] = DefaultWeightConfig()
	}
	return out
}
